// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package es

import (
	"github.com/q191201771/tsdemux/pkg/ac3"
	"github.com/q191201771/tsdemux/pkg/base"
)

// Ac3Stream AC-3和E-AC-3。编码名称以码流中的bsid为准
type Ac3Stream struct {
	pid  uint16
	info base.StreamInfo
	unit unitBuffer

	frames int
}

func NewAc3Stream(pid uint16, st base.StreamType, info base.StreamInfo) *Ac3Stream {
	info.CodecName = st.String()
	return &Ac3Stream{
		pid:  pid,
		info: info,
		unit: newUnitBuffer(pid),
	}
}

func (s *Ac3Stream) Append(data []byte, unitBoundary bool) {
	s.unit.append(data, unitBoundary)
}

func (s *Ac3Stream) EndUnit() int64 {
	var duration int64
	ac3.IterateFrames(s.unit.bytes(), func(ctx *ac3.FrameContext, frame []byte) {
		duration += ctx.Duration()
		s.frames++

		if ctx.Eac3 {
			s.info.CodecName = base.StreamTypeAudioEac3.String()
		} else {
			s.info.CodecName = base.StreamTypeAudioAc3.String()
		}
		s.info.SampleRate = ctx.SampleRate
		s.info.Channels = ctx.Channels
		s.info.BitRate = ctx.BitRate
	})
	s.unit.reset()
	return duration
}

func (s *Ac3Stream) Reset() {
	s.unit.reset()
}

func (s *Ac3Stream) CodecName() string {
	return s.info.CodecName
}

func (s *Ac3Stream) StreamInfo() base.StreamInfo {
	return s.info
}

func (s *Ac3Stream) Frames() int {
	return s.frames
}
