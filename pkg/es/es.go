// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package es

import (
	"github.com/q191201771/naza/pkg/nazalog"

	"github.com/q191201771/tsdemux/pkg/base"
)

var Log = nazalog.GetGlobalLogger()

const unitInitSize = 4096

// New 按编码类别创建sink，没有对应解析器的类别使用透传sink
//
// 可以直接作为 mpegts.DemuxerOption.SinkFactory 使用
//
func New(st base.StreamType, pid uint16, info base.StreamInfo) base.ElementaryStream {
	switch st {
	case base.StreamTypeVideoH264:
		return NewAvcStream(pid, info)
	case base.StreamTypeVideoHevc:
		return NewHevcStream(pid, info)
	case base.StreamTypeAudioAac, base.StreamTypeAudioAacAdts:
		return NewAacStream(pid, info)
	case base.StreamTypeAudioAc3, base.StreamTypeAudioEac3:
		return NewAc3Stream(pid, st, info)
	}
	return NewRaw(st, info)
}

// unitBuffer 缓存一个access unit的数据，超过 base.EsMaxUnitSize 后丢弃该unit剩余的数据
type unitBuffer struct {
	pid      uint16
	buf      *base.Buffer
	overflow bool
}

func newUnitBuffer(pid uint16) unitBuffer {
	return unitBuffer{
		pid: pid,
		buf: base.NewBuffer(unitInitSize, base.EsMaxUnitSize),
	}
}

func (u *unitBuffer) append(data []byte, unitBoundary bool) {
	if unitBoundary && u.buf.Len() != 0 {
		Log.Debugf("[%d] unit boundary with pending data, drop it. len=%d", u.pid, u.buf.Len())
		u.reset()
	}
	if u.overflow {
		return
	}
	if _, err := u.buf.Write(data); err != nil {
		Log.Warnf("[%d] access unit too large, drop the rest of it. err=%+v", u.pid, err)
		u.overflow = true
	}
}

func (u *unitBuffer) bytes() []byte {
	return u.buf.Bytes()
}

func (u *unitBuffer) reset() {
	u.buf.Reset()
	u.overflow = false
}

// ---------------------------------------------------------------------------------------------------------------------

// RawStream 透传sink，不解析码流，只统计
type RawStream struct {
	info  base.StreamInfo
	unit  unitBuffer
	units int
	bytes int64
}

func NewRaw(st base.StreamType, info base.StreamInfo) base.ElementaryStream {
	if info.CodecName == "" {
		info.CodecName = st.String()
	}
	return &RawStream{
		info: info,
		unit: newUnitBuffer(0),
	}
}

func (s *RawStream) Append(data []byte, unitBoundary bool) {
	s.unit.append(data, unitBoundary)
}

func (s *RawStream) EndUnit() int64 {
	if n := s.unit.buf.Len(); n != 0 {
		s.units++
		s.bytes += int64(n)
	}
	s.unit.reset()
	return 0
}

func (s *RawStream) Reset() {
	s.unit.reset()
}

func (s *RawStream) CodecName() string {
	return s.info.CodecName
}

func (s *RawStream) StreamInfo() base.StreamInfo {
	return s.info
}

// Units 已经结束的非空unit个数
func (s *RawStream) Units() int {
	return s.units
}

// Bytes 已经结束的unit的总字节数
func (s *RawStream) Bytes() int64 {
	return s.bytes
}
