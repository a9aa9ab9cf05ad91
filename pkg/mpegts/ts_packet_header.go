// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/naza/pkg/nazabits"

	"github.com/q191201771/tsdemux/pkg/base"
)

// ------------------------------------------------
// <iso13818-1.pdf> <2.4.3.2> <page 36/174>
// sync_byte                    [8b]  * always 0x47
// transport_error_indicator    [1b]
// payload_unit_start_indicator [1b]
// transport_priority           [1b]
// PID                          [13b] **
// transport_scrambling_control [2b]
// adaptation_field_control     [2b]
// continuity_counter           [4b]  *
// ------------------------------------------------
type TsPacketHeader struct {
	Sync             uint8
	Err              uint8
	PayloadUnitStart uint8
	Prio             uint8
	Pid              uint16
	Scra             uint8
	Adaptation       uint8
	Cc               uint8
}

// ----------------------------------------------------------
// <iso13818-1.pdf> <Table 2-6> <page 40/174>
// adaptation_field_length              [8b] * 不包括自己这1字节
// discontinuity_indicator              [1b]
// random_access_indicator              [1b]
// elementary_stream_priority_indicator [1b]
// PCR_flag                             [1b]
// OPCR_flag                            [1b]
// splicing_point_flag                  [1b]
// transport_private_data_flag          [1b]
// adaptation_field_extension_flag      [1b] *
// -----if PCR_flag == 1-----
// program_clock_reference_base         [33b]
// reserved                             [6b]
// program_clock_reference_extension    [9b] ******
// ----------------------------------------------------------
type TsPacketAdaptation struct {
	Length        uint8
	Discontinuity uint8
	RandomAccess  uint8
	PcrFlag       uint8
	PcrBase       uint64
	PcrExt        uint16
	Pcr           int64 // PcrBase*300 + PcrExt, TimestampUnset if PcrFlag==0
}

// TsPacket 一个解析完的TS包，Payload指向输入的内存块，不拷贝
type TsPacket struct {
	Header     TsPacketHeader
	Adaptation TsPacketAdaptation
	Payload    []byte
}

func (h *TsPacketHeader) HasPayload() bool {
	return h.Adaptation&0x1 != 0
}

func (h *TsPacketHeader) HasAdaptation() bool {
	return h.Adaptation&0x2 != 0
}

func (h *TsPacketHeader) IsUnitStart() bool {
	return h.PayloadUnitStart == 1
}

// ParseTsPacketHeader 解析4字节TS Packet header
func ParseTsPacketHeader(b []byte) (h TsPacketHeader) {
	br := nazabits.NewBitReader(b)
	h.Sync, _ = br.ReadBits8(8)
	h.Err, _ = br.ReadBits8(1)
	h.PayloadUnitStart, _ = br.ReadBits8(1)
	h.Prio, _ = br.ReadBits8(1)
	h.Pid, _ = br.ReadBits16(13)
	h.Scra, _ = br.ReadBits8(2)
	h.Adaptation, _ = br.ReadBits8(2)
	h.Cc, _ = br.ReadBits8(4)
	return
}

// Pack 将header写入`out`的前4字节
func (h *TsPacketHeader) Pack(out []byte) {
	bw := nazabits.NewBitWriter(out)
	bw.WriteBits8(8, h.Sync)
	bw.WriteBits8(1, h.Err)
	bw.WriteBits8(1, h.PayloadUnitStart)
	bw.WriteBits8(1, h.Prio)
	bw.WriteBits16(13, h.Pid)
	bw.WriteBits8(2, h.Scra)
	bw.WriteBits8(2, h.Adaptation)
	bw.WriteBits8(4, h.Cc)
}

// ParseTsPacketAdaptation
//
// @param b: 从adaptation_field_length开始
//
func ParseTsPacketAdaptation(b []byte) (f TsPacketAdaptation, err error) {
	f.Pcr = TimestampUnset
	if len(b) < 1 {
		return f, base.NewErrShortBuffer(1, len(b), "adaptation length")
	}
	br := nazabits.NewBitReader(b)
	f.Length, _ = br.ReadBits8(8)
	if f.Length == 0 {
		return
	}
	if len(b) < 1+int(f.Length) {
		return f, base.NewErrShortBuffer(1+int(f.Length), len(b), "adaptation")
	}

	f.Discontinuity, _ = br.ReadBits8(1)
	f.RandomAccess, _ = br.ReadBits8(1)
	_, _ = br.ReadBits8(1)
	f.PcrFlag, _ = br.ReadBits8(1)
	_, _ = br.ReadBits8(4)

	if f.PcrFlag == 1 {
		// flags 1字节 + PCR 6字节
		if f.Length < 7 {
			return f, base.NewErrShortBuffer(7, int(f.Length), "pcr")
		}
		high, _ := br.ReadBits32(32)
		low, _ := br.ReadBits8(1)
		_, _ = br.ReadBits8(6)
		f.PcrExt, _ = br.ReadBits16(9)
		f.PcrBase = uint64(high)<<1 | uint64(low)
		f.Pcr = int64(f.PcrBase)*300 + int64(f.PcrExt)
	}
	return
}

// ParseTsPacket 解析一个TS包
//
// @param b: 从sync byte开始，至少188字节。M2TS等包大小大于188的格式，只有前188字节参与解析
//
// @return err: base.ErrTransportError 传输错误标志被设置，此时pkt.Header有效
//              base.ErrNullPacket      空包，此时pkt.Header有效
//              base.ErrMalformedAdaptation
//
func ParseTsPacket(b []byte) (pkt TsPacket, err error) {
	pkt.Adaptation.Pcr = TimestampUnset
	if len(b) < TsPacketSize {
		return pkt, base.NewErrShortBuffer(TsPacketSize, len(b), "ts packet")
	}
	b = b[:TsPacketSize]

	pkt.Header = ParseTsPacketHeader(b)
	if pkt.Header.Err == 1 {
		return pkt, base.ErrTransportError
	}
	if pkt.Header.Pid == PidNull {
		return pkt, base.ErrNullPacket
	}

	index := 4
	if pkt.Header.HasAdaptation() {
		length := int(b[4])
		if length > TsPacketSize-5 {
			return pkt, base.NewErrMalformedAdaptation(pkt.Header.Pid, length, TsPacketSize-5)
		}
		pkt.Adaptation, err = ParseTsPacketAdaptation(b[4:])
		if err != nil {
			return pkt, base.NewErrMalformedAdaptation(pkt.Header.Pid, length, TsPacketSize-5)
		}
		index += 1 + length
	}

	if pkt.Header.HasPayload() {
		pkt.Payload = b[index:]
	}
	return pkt, nil
}

// CalcPcrMs PCR转换为毫秒
func CalcPcrMs(pcr int64) int64 {
	return pcr / (PcrClockRate / 1000)
}
