// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/tsdemux/pkg/base"
)

type PacketKind uint8

const (
	PacketKindUnknown PacketKind = iota
	PacketKindPsi
	PacketKindPes
)

func (k PacketKind) String() string {
	switch k {
	case PacketKindPsi:
		return "psi"
	case PacketKindPes:
		return "pes"
	}
	return "unknown"
}

// TableVersion 最近一次生效的PAT或PMT
type TableVersion struct {
	TableId uint8
	Id      uint16 // PAT为transport_stream_id，PMT为program_number
	Version uint8
}

// PidState 一个PID的解析状态
type PidState struct {
	Pid           uint16
	Kind          PacketKind
	Channel       uint16 // 所属节目的program_number，PAT为0
	Cc            uint8  // ccUnset 表示接受任意值
	WaitUnitStart bool
	Streaming     bool
	Pcr           int64

	// psi
	section      *SectionAssembler
	tableVersion TableVersion
	hasTable     bool

	// pes
	PmtStreamType uint8
	StreamType    base.StreamType
	sink          base.ElementaryStream
	pes           PesAssembler
	inHeader      bool // 正在攒PES header
	unitOpen      bool // header已经完整，后续payload属于当前unit
	boundary      bool // 下一次Append是unit的第一段数据
	Pts           int64
	Dts           int64
	PrevPts       int64
	PrevDts       int64
	lastIndex     int // 该PID最近一个ProducedPacket在输出序列中的位置，-1表示还没有
}

func newPsiState(pid uint16, channel uint16) *PidState {
	ps := &PidState{
		Pid:     pid,
		Kind:    PacketKindPsi,
		Channel: channel,
		section: NewSectionAssembler(),
	}
	ps.init()
	return ps
}

func newPesState(pid uint16, channel uint16, pmtStreamType uint8, st base.StreamType, sink base.ElementaryStream) *PidState {
	ps := &PidState{
		Pid:           pid,
		Kind:          PacketKindPes,
		Channel:       channel,
		PmtStreamType: pmtStreamType,
		StreamType:    st,
		sink:          sink,
		PrevPts:       TimestampUnset,
		PrevDts:       TimestampUnset,
		lastIndex:     -1,
	}
	ps.init()
	return ps
}

func (ps *PidState) init() {
	ps.Cc = ccUnset
	ps.WaitUnitStart = true
	ps.Pcr = TimestampUnset
	ps.Pts = TimestampUnset
	ps.Dts = TimestampUnset
}

// Reset 丢弃正在重组的数据，重新等待unit start。检测到不连续时调用
func (ps *PidState) Reset() {
	ps.Cc = ccUnset
	ps.WaitUnitStart = true
	if ps.section != nil {
		ps.section.Reset()
	}
	ps.inHeader = false
	ps.unitOpen = false
	ps.boundary = false
	if ps.sink != nil {
		ps.sink.Reset()
	}
}

func (ps *PidState) Sink() base.ElementaryStream {
	return ps.sink
}
