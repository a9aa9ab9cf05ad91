// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package es

import (
	"github.com/q191201771/tsdemux/pkg/avc"
	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/h2645"
)

// AvcStream H.264 Annex-B
type AvcStream struct {
	pid  uint16
	info base.StreamInfo
	unit unitBuffer

	spsCtx    avc.Context
	hasSps    bool
	keyFrames int
}

func NewAvcStream(pid uint16, info base.StreamInfo) *AvcStream {
	info.CodecName = base.StreamTypeVideoH264.String()
	return &AvcStream{
		pid:  pid,
		info: info,
		unit: newUnitBuffer(pid),
	}
}

func (s *AvcStream) Append(data []byte, unitBoundary bool) {
	s.unit.append(data, unitBoundary)
}

// EndUnit 有SPS timing info时返回每帧时长
func (s *AvcStream) EndUnit() int64 {
	h2645.IterateNaluAnnexb(s.unit.bytes(), func(nal []byte) {
		switch avc.CalcNaluType(nal) {
		case avc.NaluUintTypeSPS:
			s.onSps(nal)
		case avc.NaluUnitTypeIDRSlice:
			s.keyFrames++
		}
	})
	s.unit.reset()

	if !s.hasSps {
		return 0
	}
	return s.spsCtx.FrameDuration()
}

func (s *AvcStream) Reset() {
	s.unit.reset()
}

func (s *AvcStream) CodecName() string {
	return s.info.CodecName
}

func (s *AvcStream) StreamInfo() base.StreamInfo {
	return s.info
}

// KeyFrames 遇到的IDR slice个数
func (s *AvcStream) KeyFrames() int {
	return s.keyFrames
}

func (s *AvcStream) onSps(nal []byte) {
	var ctx avc.Context
	if err := avc.ParseSps(h2645.EbspToRbsp(nal), &ctx); err != nil {
		Log.Warnf("[%d] parse sps failed. err=%+v", s.pid, err)
		return
	}
	if !s.hasSps || ctx != s.spsCtx {
		Log.Debugf("[%d] sps. profile=%d, level=%d, width=%d, height=%d, interlaced=%t, fps=%d/%d",
			s.pid, ctx.Profile, ctx.Level, ctx.Width, ctx.Height, ctx.Interlaced, ctx.FpsRate, ctx.FpsScale)
	}
	s.spsCtx = ctx
	s.hasSps = true

	s.info.Width = int(ctx.Width)
	s.info.Height = int(ctx.Height)
	s.info.Interlaced = ctx.Interlaced
	s.info.Aspect = ctx.Aspect
	s.info.FpsRate = int(ctx.FpsRate)
	s.info.FpsScale = int(ctx.FpsScale)
}
