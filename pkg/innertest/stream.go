// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package innertest

import (
	"github.com/q191201771/tsdemux/pkg/mpegts"
)

// StreamBuilder 构造测试用的TS流
//
// 内部按PID维护continuity counter，输出时按PacketSize补齐每个包
//
type StreamBuilder struct {
	// PacketSize 188, 192(M2TS, 4字节前缀), 204, 208(尾部填充)
	PacketSize int

	packets [][]byte
	ccs     map[uint16]*uint8
}

func NewStreamBuilder() *StreamBuilder {
	return &StreamBuilder{
		PacketSize: mpegts.TsPacketSize,
		ccs:        make(map[uint16]*uint8),
	}
}

func (sb *StreamBuilder) cc(pid uint16) *uint8 {
	cc, ok := sb.ccs[pid]
	if !ok {
		cc = new(uint8)
		sb.ccs[pid] = cc
	}
	return cc
}

// AddPat 一个节目号对应一个PMT PID
func (sb *StreamBuilder) AddPat(version uint8, programs ...mpegts.PatProgramElement) *StreamBuilder {
	section := mpegts.NewPatSection(1, version, programs).Pack()
	return sb.AddSection(mpegts.PidPat, section)
}

func (sb *StreamBuilder) AddPmt(pmtPid uint16, programNumber uint16, version uint8, pcrPid uint16, elements ...mpegts.PmtProgramElement) *StreamBuilder {
	section := mpegts.NewPmtSection(programNumber, version, pcrPid, elements).Pack()
	return sb.AddSection(pmtPid, section)
}

// AddSection section从table_id开始，可以跨多个TS包
func (sb *StreamBuilder) AddSection(pid uint16, section []byte) *StreamBuilder {
	return sb.AddPackets(mpegts.PackSection(pid, sb.cc(pid), section))
}

// AddFrame 忽略frame.Cc，使用内部维护的值
func (sb *StreamBuilder) AddFrame(frame mpegts.Frame) *StreamBuilder {
	cc := sb.cc(frame.Pid)
	frame.Cc = *cc
	b := frame.Pack()
	*cc = frame.Cc
	return sb.AddPackets(b)
}

// AddPackets 追加188字节整数倍的数据
func (sb *StreamBuilder) AddPackets(b []byte) *StreamBuilder {
	for len(b) >= mpegts.TsPacketSize {
		packet := make([]byte, mpegts.TsPacketSize)
		copy(packet, b)
		sb.packets = append(sb.packets, packet)
		b = b[mpegts.TsPacketSize:]
	}
	return sb
}

// Packets 目前已经生成的188字节TS包
func (sb *StreamBuilder) Packets() [][]byte {
	return sb.packets
}

// Bytes 按PacketSize输出
func (sb *StreamBuilder) Bytes() []byte {
	out := make([]byte, 0, len(sb.packets)*sb.PacketSize)
	for _, p := range sb.packets {
		switch sb.PacketSize {
		case mpegts.TsPacketSizeM2ts:
			// TP_extra_header，copy_permission_indicator和arrival_time_stamp都填0
			out = append(out, 0, 0, 0, 0)
			out = append(out, p...)
		case mpegts.TsPacketSizeDvbAsi, mpegts.TsPacketSizeAtsc:
			out = append(out, p...)
			out = append(out, make([]byte, sb.PacketSize-mpegts.TsPacketSize)...)
		default:
			out = append(out, p...)
		}
	}
	return out
}
