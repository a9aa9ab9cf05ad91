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

// ---------------------------------------------------------------------------------------------------
// Program association section
// <iso13818-1.pdf> <2.4.4.3> <page 61/174>
// table_id                 [8b] *
// section_syntax_indicator [1b]
// '0'                      [1b]
// reserved                 [2b]
// section_length           [12b] **
// transport_stream_id      [16b] **
// reserved                 [2b]
// version_number           [5b]
// current_next_indicator   [1b]  *
// section_number           [8b]  *
// last_section_number      [8b]  *
// -----loop-----
// program_number           [16b] **
// reserved                 [3b]
// program_map_PID          [13b] ** if program_number == 0 then network_PID else then program_map_PID
// --------------
// CRC_32                   [32b] ****
// ---------------------------------------------------------------------------------------------------
type Pat struct {
	TableId           uint8
	SectionLength     uint16
	TransportStreamId uint16
	Version           uint8
	CurrentNext       uint8
	SectionNumber     uint8
	LastSectionNumber uint8
	ProgramElements   []PatProgramElement
	Crc32             uint32
}

type PatProgramElement struct {
	ProgramNumber uint16
	ProgramMapPid uint16 // program_number为0时为network_PID
}

// patFixedSize transport_stream_id到last_section_number的5字节，加上CRC_32的4字节
const patFixedSize = 9

// ParsePat
//
// @param b: 一个完整的section，从table_id开始
//
func ParsePat(b []byte) (pat Pat, err error) {
	if len(b) < psiSectionHeaderSize+patFixedSize {
		return pat, base.NewErrMalformedSection(PidPat, "pat too short")
	}

	br := nazabits.NewBitReader(b)
	pat.TableId, _ = br.ReadBits8(8)
	_, _ = br.ReadBits8(4)
	pat.SectionLength, _ = br.ReadBits16(12)
	pat.TransportStreamId, _ = br.ReadBits16(16)
	_, _ = br.ReadBits8(2)
	pat.Version, _ = br.ReadBits8(5)
	pat.CurrentNext, _ = br.ReadBits8(1)
	pat.SectionNumber, _ = br.ReadBits8(8)
	pat.LastSectionNumber, _ = br.ReadBits8(8)

	if pat.TableId != TsPsiIdPas {
		return pat, base.NewErrMalformedSection(PidPat, "pat table id mismatch")
	}
	if int(pat.SectionLength) < patFixedSize || psiSectionHeaderSize+int(pat.SectionLength) > len(b) {
		return pat, base.NewErrMalformedSection(PidPat, "pat section length out of range")
	}
	length := int(pat.SectionLength) - patFixedSize
	if length%4 != 0 {
		return pat, base.NewErrMalformedSection(PidPat, "pat program loop not aligned")
	}

	for i := 0; i < length; i += 4 {
		var ppe PatProgramElement
		ppe.ProgramNumber, _ = br.ReadBits16(16)
		_, _ = br.ReadBits8(3)
		ppe.ProgramMapPid, _ = br.ReadBits16(13)
		pat.ProgramElements = append(pat.ProgramElements, ppe)
	}
	pat.Crc32, _ = br.ReadBits32(32)
	return
}

// SearchPid 是否有节目的PMT使用该PID
func (pat *Pat) SearchPid(pid uint16) bool {
	for _, ppe := range pat.ProgramElements {
		if ppe.ProgramNumber != 0 && pid == ppe.ProgramMapPid {
			return true
		}
	}
	return false
}
