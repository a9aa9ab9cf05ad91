// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazabits"

	"github.com/q191201771/tsdemux/pkg/base"
)

// -----------------------------------------------------------
// <iso13818-1.pdf>
// <2.4.3.6 PES packet> <page 49/174>
// <Table E.1 - PES packet header example> <page 142/174>
// <F.0.2 PES packet> <page 144/174>
// packet_start_code_prefix  [24b] *** always 0x00, 0x00, 0x01
// stream_id                 [8b]  *
// PES_packet_length         [16b] **
// '10'                      [2b]
// PES_scrambling_control    [2b]
// PES_priority              [1b]
// data_alignment_indicator  [1b]
// copyright                 [1b]
// original_or_copy          [1b]  *
// PTS_DTS_flags             [2b]
// ESCR_flag                 [1b]
// ES_rate_flag              [1b]
// DSM_trick_mode_flag       [1b]
// additional_copy_info_flag [1b]
// PES_CRC_flag              [1b]
// PES_extension_flag        [1b]  *
// PES_header_data_length    [8b]  *
// -----------------------------------------------------------
type PesHeader struct {
	StreamId         uint8
	PacketLength     uint16
	PtsDtsFlag       uint8
	HeaderDataLength uint8
	Pts              int64 // TimestampUnset if not present
	Dts              int64 // equals Pts when only PTS is present
}

// HasOptionalHeader stream_id为private_stream_1或者音视频时，才有9字节固定头后面的可选部分
func HasOptionalHeader(sid uint8) bool {
	return sid == StreamIdPrivateStream1 || (sid >= StreamIdAudioStart && sid <= StreamIdVideoEnd)
}

// ParsePesHeader 解析一个完整的PES header
//
// @param b: 从packet_start_code_prefix开始。
//           stream_id没有可选部分时，至少6字节；否则至少 9+PES_header_data_length 字节
//
// @return length: header总长度，后面紧跟es数据
//
func ParsePesHeader(b []byte) (h PesHeader, length int, err error) {
	h.Pts = TimestampUnset
	h.Dts = TimestampUnset

	if len(b) < 6 {
		return h, 0, base.NewErrShortBuffer(6, len(b), "pes prefix")
	}
	if b[0] != 0 || b[1] != 0 || b[2] != 1 {
		return h, 0, base.ErrMalformedPes
	}
	h.StreamId = b[3]
	h.PacketLength = bele.BeUint16(b[4:])
	if !HasOptionalHeader(h.StreamId) {
		return h, 6, nil
	}

	if len(b) < 9 {
		return h, 0, base.NewErrShortBuffer(9, len(b), "pes flags")
	}
	br := nazabits.NewBitReader(b[7:])
	h.PtsDtsFlag, _ = br.ReadBits8(2)
	_, _ = br.ReadBits8(6)
	h.HeaderDataLength, _ = br.ReadBits8(8)
	length = 9 + int(h.HeaderDataLength)
	if len(b) < length {
		return h, 0, base.NewErrShortBuffer(length, len(b), "pes optional header")
	}

	switch h.PtsDtsFlag {
	case 0x2:
		if length >= 14 {
			h.Pts = DecodePts(b[9:])
			h.Dts = h.Pts
		}
	case 0x3:
		if length >= 19 {
			h.Pts = DecodePts(b[9:])
			h.Dts = DecodePts(b[14:])
		}
	}
	return
}

// DecodePts 解析5字节的PTS或DTS，返回33位的值
func DecodePts(p []byte) int64 {
	v := int64(p[0]&0x0E) << 29
	v |= int64(bele.BeUint16(p[1:])>>1) << 15
	v |= int64(bele.BeUint16(p[3:]) >> 1)
	return v
}

// EncodePts 将33位的PTS或DTS打包成5字节，marker bit都置1
//
// @param fb: 高4位的前缀。只有PTS时为2，PTS+DTS时PTS为3、DTS为1
//
func EncodePts(out []byte, fb uint8, pts int64) {
	pts &= PtsMask
	out[0] = (fb << 4) | (uint8(pts>>29) & 0x0E) | 1
	bele.BePutUint16(out[1:], uint16(((pts>>15)&0x7FFF)<<1|1))
	bele.BePutUint16(out[3:], uint16((pts&0x7FFF)<<1|1))
}

// ----- assembler -----------------------------------------------------------------------------------------------------

type pesStage uint8

const (
	pesStagePrefix pesStage = iota
	pesStageFlags
	pesStageOptional
	pesStageDone
)

// PesAssembler 跨TS包重组PES header
//
// header可能被TS包边界切开，所以先把header字节攒到固定大小的缓存中，攒齐后再解析。
// 目标长度分阶段扩展：6字节前缀，9字节flags，最后是 9+PES_header_data_length
//
type PesAssembler struct {
	buf    [maxPesHeaderSize]byte
	n      int
	target int
	stage  pesStage
	header PesHeader
}

// Start 在unit start时调用，重新开始攒header
func (a *PesAssembler) Start() {
	a.n = 0
	a.target = 6
	a.stage = pesStagePrefix
	a.header = PesHeader{Pts: TimestampUnset, Dts: TimestampUnset}
}

func (a *PesAssembler) Done() bool {
	return a.stage == pesStageDone
}

func (a *PesAssembler) Header() PesHeader {
	return a.header
}

// Push 喂入TS payload
//
// @return consumed: 属于header的字节数，payload[consumed:]为es数据
// @return done:     header是否已经完整
// @return err:      base.ErrMalformedPes，此时调用方应丢弃该unit
//
func (a *PesAssembler) Push(payload []byte) (consumed int, done bool, err error) {
	for a.stage != pesStageDone {
		if a.n < a.target {
			c := copy(a.buf[a.n:a.target], payload[consumed:])
			a.n += c
			consumed += c
			if a.n < a.target {
				return consumed, false, nil
			}
		}

		switch a.stage {
		case pesStagePrefix:
			if a.buf[0] != 0 || a.buf[1] != 0 || a.buf[2] != 1 {
				return consumed, false, base.ErrMalformedPes
			}
			if HasOptionalHeader(a.buf[3]) {
				a.target = 9
				a.stage = pesStageFlags
			} else {
				a.stage = pesStageOptional
			}
		case pesStageFlags:
			a.target = 9 + int(a.buf[8])
			a.stage = pesStageOptional
		case pesStageOptional:
			a.header, _, err = ParsePesHeader(a.buf[:a.n])
			if err != nil {
				return consumed, false, err
			}
			a.stage = pesStageDone
		}
	}
	return consumed, true, nil
}
