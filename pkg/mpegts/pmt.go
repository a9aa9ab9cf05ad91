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

// Pmt
//
// ----------------------------------------
// Program Map Table
// <iso13818-1.pdf> <2.4.4.8> <page 64/174>
// table_id                 [8b]  *
// section_syntax_indicator [1b]
// 0                        [1b]
// reserved                 [2b]
// section_length           [12b] **
// program_number           [16b] **
// reserved                 [2b]
// version_number           [5b]
// current_next_indicator   [1b]  *
// section_number           [8b]  *
// last_section_number      [8b]  *
// reserved                 [3b]
// PCR_PID                  [13b] **
// reserved                 [4b]
// program_info_length      [12b] **
// -----loop-----
// stream_type              [8b]  *
// reserved                 [3b]
// elementary_PID           [13b] **
// reserved                 [4b]
// ES_info_length_length    [12b] **
// --------------
// CRC32                    [32b] ****
// ----------------------------------------
//
type Pmt struct {
	TableId            uint8
	SectionLength      uint16
	ProgramNumber      uint16
	Version            uint8
	CurrentNext        uint8
	SectionNumber      uint8
	LastSectionNumber  uint8
	PcrPid             uint16
	ProgramInfoLength  uint16
	ProgramDescriptors []Descriptor
	ProgramElements    []PmtProgramElement
	Crc32              uint32
}

type PmtProgramElement struct {
	StreamType  uint8
	Pid         uint16
	Length      uint16
	Descriptors []Descriptor
}

// pmtFixedSize section_length之后、流循环之前的9字节
const pmtFixedSize = 9

// ParsePmt
//
// @param b: 一个完整的section，从table_id开始。返回的描述符指向`b`的内存块
//
// @param pid: 只用于错误信息
//
func ParsePmt(pid uint16, b []byte) (pmt Pmt, err error) {
	if len(b) < psiSectionHeaderSize+pmtFixedSize+4 {
		return pmt, base.NewErrMalformedSection(pid, "pmt too short")
	}

	br := nazabits.NewBitReader(b)
	pmt.TableId, _ = br.ReadBits8(8)
	_, _ = br.ReadBits8(4)
	pmt.SectionLength, _ = br.ReadBits16(12)
	pmt.ProgramNumber, _ = br.ReadBits16(16)
	_, _ = br.ReadBits8(2)
	pmt.Version, _ = br.ReadBits8(5)
	pmt.CurrentNext, _ = br.ReadBits8(1)
	pmt.SectionNumber, _ = br.ReadBits8(8)
	pmt.LastSectionNumber, _ = br.ReadBits8(8)
	_, _ = br.ReadBits8(3)
	pmt.PcrPid, _ = br.ReadBits16(13)
	_, _ = br.ReadBits8(4)
	pmt.ProgramInfoLength, _ = br.ReadBits16(12)

	if pmt.TableId != TsPsiIdPms {
		return pmt, base.NewErrMalformedSection(pid, "pmt table id mismatch")
	}
	// 不包括CRC_32
	end := psiSectionHeaderSize + int(pmt.SectionLength) - 4
	if int(pmt.SectionLength) < pmtFixedSize+4 || end+4 > len(b) {
		return pmt, base.NewErrMalformedSection(pid, "pmt section length out of range")
	}

	index := psiSectionHeaderSize + pmtFixedSize
	if index+int(pmt.ProgramInfoLength) > end {
		return pmt, base.NewErrMalformedSection(pid, "program info length out of range")
	}
	if pmt.ProgramDescriptors, err = ParseDescriptors(pid, b[index:index+int(pmt.ProgramInfoLength)]); err != nil {
		return
	}
	index += int(pmt.ProgramInfoLength)

	for index < end {
		if index+5 > end {
			return pmt, base.NewErrMalformedSection(pid, "stream entry truncated")
		}
		ebr := nazabits.NewBitReader(b[index:])
		var ppe PmtProgramElement
		ppe.StreamType, _ = ebr.ReadBits8(8)
		_, _ = ebr.ReadBits8(3)
		ppe.Pid, _ = ebr.ReadBits16(13)
		_, _ = ebr.ReadBits8(4)
		ppe.Length, _ = ebr.ReadBits16(12)
		index += 5

		if index+int(ppe.Length) > end {
			return pmt, base.NewErrMalformedSection(pid, "es info length out of range")
		}
		if ppe.Descriptors, err = ParseDescriptors(pid, b[index:index+int(ppe.Length)]); err != nil {
			return
		}
		index += int(ppe.Length)
		pmt.ProgramElements = append(pmt.ProgramElements, ppe)
	}

	tbr := nazabits.NewBitReader(b[end:])
	pmt.Crc32, _ = tbr.ReadBits32(32)
	return
}

func (pmt *Pmt) SearchPid(pid uint16) *PmtProgramElement {
	for i := range pmt.ProgramElements {
		if pmt.ProgramElements[i].Pid == pid {
			return &pmt.ProgramElements[i]
		}
	}
	return nil
}
