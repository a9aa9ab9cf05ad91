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

	"github.com/q191201771/tsdemux/pkg/base"
)

// PsiId
const (
	TsPsiIdPas            = 0x00 // program_association_section
	TsPsiIdCas            = 0x01 // conditional_access_section (CA_section)
	TsPsiIdPms            = 0x02 // TS_program_map_section
	TsPsiIdDs             = 0x03 // TS_description_section
	TsPsiIdSds            = 0x04 // ISO_IEC_14496_scene_description_section
	TsPsiIdOds            = 0x05 // ISO_IEC_14496_object_descriptor_section
	TsPsiIdIso138181Start = 0x06 // ITU-T Rec. H.222.0 | ISO/IEC 13818-1 reserved
	TsPsiIdIso138181End   = 0x37
	TsPsiIdIso138186Start = 0x38 // Defined in ISO/IEC 13818-6
	TsPsiIdIso138186End   = 0x3F
	TsPsiIdUserStart      = 0x40 // User private
	TsPsiIdUserEnd        = 0xFE
	TsPsiIdForbidden      = 0xFF // forbidden
)

// ----------------------------------------------------------
// <iso13818-1.pdf> <2.4.4.1> <page 59/174>
// pointer_field            [8b]  * 只在unit start的包中存在
// ----- section -----
// table_id                 [8b]  *
// section_syntax_indicator [1b]
// '0'                      [1b]
// reserved                 [2b]  * 和上面2位一起，PAT、PMT中必须为0b0011
// section_length           [12b] ** 不包括自己以及之前的3字节
// ----------------------------------------------------------

// psiSectionHeaderSize table_id + section_length所在的3字节
const psiSectionHeaderSize = 3

// SectionAssembler 跨TS包重组一个PSI section
//
// 缓存的内容从table_id开始，到CRC_32结束，最多 maxSectionSize 字节
//
type SectionAssembler struct {
	buf   []byte
	total int // 0表示没有正在重组的section
}

func NewSectionAssembler() *SectionAssembler {
	return &SectionAssembler{
		buf: make([]byte, 0, 1024),
	}
}

// InProgress 是否有正在重组、还没攒齐的section
func (s *SectionAssembler) InProgress() bool {
	return s.total != 0
}

func (s *SectionAssembler) Reset() {
	s.buf = s.buf[:0]
	s.total = 0
}

// Push 喂入一个TS包的payload
//
// @param pid: 只用于错误信息
//
// @return section: 非nil时为一个完整的section，内存块在下一次调用Push前有效
// @return err:     base.ErrMalformedSection, base.ErrSectionTooLarge, base.ErrUnexpectedContinuation
//                  出错时正在重组的section被丢弃
//
func (s *SectionAssembler) Push(pid uint16, payload []byte, unitStart bool) (section []byte, err error) {
	if unitStart {
		if s.InProgress() {
			Log.Debugf("[%d] drop incomplete section. have=%d, total=%d", pid, len(s.buf), s.total)
		}
		s.Reset()

		if len(payload) < 1 {
			return nil, base.NewErrMalformedSection(pid, "no pointer field")
		}
		pointer := int(payload[0])
		payload = payload[1:]
		if pointer+psiSectionHeaderSize > len(payload) {
			return nil, base.NewErrMalformedSection(pid, "pointer field out of range")
		}
		payload = payload[pointer:]

		v := bele.BeUint16(payload[1:])
		if v&0x3000 != 0x3000 {
			return nil, base.NewErrMalformedSection(pid, "bad section syntax bits")
		}
		total := psiSectionHeaderSize + int(v&0x0FFF)
		if total > maxSectionSize {
			return nil, base.NewErrSectionTooLarge(pid, total, maxSectionSize)
		}
		s.total = total
	} else if !s.InProgress() {
		return nil, base.NewErrUnexpectedContinuation(pid)
	}

	need := s.total - len(s.buf)
	if need > len(payload) {
		need = len(payload)
	}
	s.buf = append(s.buf, payload[:need]...)
	if len(s.buf) < s.total {
		return nil, nil
	}

	section = s.buf
	s.total = 0
	s.buf = s.buf[:0]
	return section, nil
}
