// Copyright 2023, Chef.  All rights reserved.
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
)

// PsiSection 用于生成PAT、PMT section
type PsiSection struct {
	tableId          uint8
	tableIdExtension uint16
	versionNumber    uint8
	currentNext      uint8

	patPrograms []PatProgramElement

	pcrPid      uint16
	pmtElements []PmtProgramElement
}

func NewPatSection(tsid uint16, version uint8, programs []PatProgramElement) *PsiSection {
	return &PsiSection{
		tableId:          TsPsiIdPas,
		tableIdExtension: tsid,
		versionNumber:    version,
		currentNext:      1,
		patPrograms:      programs,
	}
}

// NewPmtSection PmtProgramElement.Length 会按Descriptors重新计算
func NewPmtSection(programNumber uint16, version uint8, pcrPid uint16, elements []PmtProgramElement) *PsiSection {
	return &PsiSection{
		tableId:          TsPsiIdPms,
		tableIdExtension: programNumber,
		versionNumber:    version,
		currentNext:      1,
		pcrPid:           pcrPid,
		pmtElements:      elements,
	}
}

func (psi *PsiSection) SetCurrentNext(v uint8) *PsiSection {
	psi.currentNext = v
	return psi
}

// Pack 生成完整的section，从table_id开始，包含CRC_32
func (psi *PsiSection) Pack() []byte {
	sl := psi.calcSectionLength()
	section := make([]byte, psiSectionHeaderSize+int(sl))
	bw := nazabits.NewBitWriter(section)

	bw.WriteBits8(8, psi.tableId)
	bw.WriteBit(1) // section_syntax_indicator
	bw.WriteBit(0)
	bw.WriteBits8(2, 0xff)
	bw.WriteBits16(12, sl)

	bw.WriteBits16(16, psi.tableIdExtension)
	bw.WriteBits8(2, 0xff)
	bw.WriteBits8(5, psi.versionNumber)
	bw.WriteBit(psi.currentNext)
	bw.WriteBits8(8, 0) // section_number
	bw.WriteBits8(8, 0) // last_section_number

	switch psi.tableId {
	case TsPsiIdPas:
		psi.writePatSection(&bw)
	case TsPsiIdPms:
		psi.writePmtSection(&bw)
	}

	n := len(section) - 4
	bele.BePutUint32(section[n:], CalcCrc32(0xFFFFFFFF, section[:n]))
	return section
}

func (psi *PsiSection) calcSectionLength() uint16 {
	// table_id_extension到last_section_number 5字节，加CRC_32 4字节
	length := uint16(5 + 4)
	switch psi.tableId {
	case TsPsiIdPas:
		length += uint16(4 * len(psi.patPrograms))
	case TsPsiIdPms:
		// PCR_PID + program_info_length
		length += 4
		for _, pe := range psi.pmtElements {
			length += 5 + calcDescriptorsLength(pe.Descriptors)
		}
	}
	return length
}

func (psi *PsiSection) writePatSection(bw *nazabits.BitWriter) {
	for _, pe := range psi.patPrograms {
		bw.WriteBits16(16, pe.ProgramNumber)
		bw.WriteBits8(3, 0xff)
		bw.WriteBits16(13, pe.ProgramMapPid)
	}
}

func (psi *PsiSection) writePmtSection(bw *nazabits.BitWriter) {
	bw.WriteBits8(3, 0xff)
	bw.WriteBits16(13, psi.pcrPid)
	bw.WriteBits8(4, 0xff)
	bw.WriteBits16(12, 0) // program_info_length

	for _, pe := range psi.pmtElements {
		bw.WriteBits8(8, pe.StreamType)
		bw.WriteBits8(3, 0xff)
		bw.WriteBits16(13, pe.Pid)
		bw.WriteBits8(4, 0xff)
		bw.WriteBits16(12, calcDescriptorsLength(pe.Descriptors))
		for _, d := range pe.Descriptors {
			bw.WriteBits8(8, d.Tag)
			bw.WriteBits8(8, uint8(len(d.Data)))
			for _, b := range d.Data {
				bw.WriteBits8(8, b)
			}
		}
	}
}

func calcDescriptorsLength(ds []Descriptor) uint16 {
	length := uint16(0)
	for _, d := range ds {
		length += 2 + uint16(len(d.Data))
	}
	return length
}
