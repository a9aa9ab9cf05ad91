// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package es

import (
	"github.com/q191201771/tsdemux/pkg/aac"
	"github.com/q191201771/tsdemux/pkg/base"
)

// AacStream ADTS封装的AAC
type AacStream struct {
	pid  uint16
	info base.StreamInfo
	unit unitBuffer

	frames int
}

func NewAacStream(pid uint16, info base.StreamInfo) *AacStream {
	info.CodecName = base.StreamTypeAudioAac.String()
	return &AacStream{
		pid:  pid,
		info: info,
		unit: newUnitBuffer(pid),
	}
}

func (s *AacStream) Append(data []byte, unitBoundary bool) {
	s.unit.append(data, unitBoundary)
}

// EndUnit 返回该unit中所有完整ADTS帧的时长之和，尾部不完整的帧被丢弃
func (s *AacStream) EndUnit() int64 {
	var duration int64
	b := s.unit.bytes()
	remain := aac.IterateAdts(b, func(ctx *aac.AdtsHeaderContext, frame []byte) {
		d, err := ctx.Duration()
		if err != nil {
			Log.Warnf("[%d] invalid adts header. err=%+v", s.pid, err)
			return
		}
		duration += d
		s.frames++

		sf, _ := ctx.AscCtx.GetSamplingFrequency()
		s.info.SampleRate = sf
		s.info.Channels = adtsChannels(ctx.AscCtx.ChannelConfiguration)
	})
	if remain != len(b) {
		Log.Debugf("[%d] drop incomplete adts frame. len=%d", s.pid, len(b)-remain)
	}
	s.unit.reset()
	return duration
}

func (s *AacStream) Reset() {
	s.unit.reset()
}

func (s *AacStream) CodecName() string {
	return s.info.CodecName
}

func (s *AacStream) StreamInfo() base.StreamInfo {
	return s.info
}

// Frames 解析过的完整ADTS帧个数
func (s *AacStream) Frames() int {
	return s.frames
}

// <ISO_IEC_14496-3.pdf> <1.6.3.4 channelConfiguration>，7表示7.1
func adtsChannels(cc uint8) int {
	if cc == 7 {
		return 8
	}
	return int(cc)
}
