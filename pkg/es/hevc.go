// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package es

import (
	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/h2645"
	"github.com/q191201771/tsdemux/pkg/hevc"
)

// HevcStream H.265 Annex-B，只解析SPS中的宽高，不计算时长
type HevcStream struct {
	pid  uint16
	info base.StreamInfo
	unit unitBuffer

	hasSps bool
}

func NewHevcStream(pid uint16, info base.StreamInfo) *HevcStream {
	info.CodecName = base.StreamTypeVideoHevc.String()
	return &HevcStream{
		pid:  pid,
		info: info,
		unit: newUnitBuffer(pid),
	}
}

func (s *HevcStream) Append(data []byte, unitBoundary bool) {
	s.unit.append(data, unitBoundary)
}

func (s *HevcStream) EndUnit() int64 {
	h2645.IterateNaluAnnexb(s.unit.bytes(), func(nal []byte) {
		if hevc.CalcNaluType(nal) != h2645.H265NaluTypeSps {
			return
		}
		var ctx hevc.Context
		if err := hevc.ParseSps(h2645.EbspToRbsp(nal), &ctx); err != nil {
			Log.Warnf("[%d] parse hevc sps failed. err=%+v", s.pid, err)
			return
		}
		if !s.hasSps {
			Log.Debugf("[%d] hevc sps. profile=%d, level=%d, width=%d, height=%d",
				s.pid, ctx.GeneralProfileIdc, ctx.GeneralLevelIdc, ctx.Width, ctx.Height)
		}
		s.hasSps = true
		s.info.Width = int(ctx.Width)
		s.info.Height = int(ctx.Height)
		s.info.Interlaced = ctx.Interlaced
	})
	s.unit.reset()
	return 0
}

func (s *HevcStream) Reset() {
	s.unit.reset()
}

func (s *HevcStream) CodecName() string {
	return s.info.CodecName
}

func (s *HevcStream) StreamInfo() base.StreamInfo {
	return s.info
}
