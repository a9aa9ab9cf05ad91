// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts_test

import (
	"errors"
	"testing"

	"github.com/q191201771/naza/pkg/assert"

	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/mpegts"
)

func bigDescriptor(size int) mpegts.Descriptor {
	d := mpegts.Descriptor{Tag: mpegts.DescriptorTagRegistration, Data: make([]byte, size)}
	for i := range d.Data {
		d.Data[i] = uint8(i)
	}
	return d
}

// feedSection 把section打包后逐个包喂给assembler，返回最后一个包的结果
func feedSection(t *testing.T, pid uint16, section []byte) (out []byte, packets int) {
	var cc uint8
	b := mpegts.PackSection(pid, &cc, section)
	packets = len(b) / mpegts.TsPacketSize

	sa := mpegts.NewSectionAssembler()
	for i := 0; i < packets; i++ {
		pkt, err := mpegts.ParseTsPacket(b[i*mpegts.TsPacketSize:])
		assert.Equal(t, nil, err)
		s, err := sa.Push(pid, pkt.Payload, pkt.Header.IsUnitStart())
		assert.Equal(t, nil, err)
		if i != packets-1 {
			assert.Equal(t, true, s == nil)
			assert.Equal(t, true, sa.InProgress())
		} else {
			out = append(out, s...)
		}
	}
	assert.Equal(t, false, sa.InProgress())
	return
}

func TestSectionAssembler(t *testing.T) {
	elements := []mpegts.PmtProgramElement{
		{StreamType: mpegts.StreamTypeH264, Pid: 0x100, Descriptors: []mpegts.Descriptor{bigDescriptor(200)}},
	}
	section := mpegts.NewPmtSection(1, 0, 0x100, elements).Pack()
	out, packets := feedSection(t, 0x1000, section)
	assert.Equal(t, 2, packets)
	assert.Equal(t, section, out)

	elements = []mpegts.PmtProgramElement{
		{StreamType: mpegts.StreamTypeH264, Pid: 0x100, Descriptors: []mpegts.Descriptor{bigDescriptor(255)}},
		{StreamType: mpegts.StreamTypeAacAdts, Pid: 0x101, Descriptors: []mpegts.Descriptor{bigDescriptor(255)}},
		{StreamType: mpegts.StreamTypeAc3, Pid: 0x102, Descriptors: []mpegts.Descriptor{bigDescriptor(255)}},
	}
	section = mpegts.NewPmtSection(1, 0, 0x100, elements).Pack()
	out, packets = feedSection(t, 0x1000, section)
	assert.Equal(t, 5, packets)
	assert.Equal(t, section, out)
	assert.Equal(t, true, mpegts.CheckSectionCrc32(out))

	pmt, err := mpegts.ParsePmt(0x1000, out)
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, len(pmt.ProgramElements))
	for i, ppe := range pmt.ProgramElements {
		assert.Equal(t, elements[i].StreamType, ppe.StreamType)
		assert.Equal(t, elements[i].Pid, ppe.Pid)
		assert.Equal(t, uint16(257), ppe.Length)
		assert.Equal(t, 1, len(ppe.Descriptors))
		assert.Equal(t, elements[i].Descriptors[0].Data, ppe.Descriptors[0].Data)
	}
}

func TestSectionAssemblerError(t *testing.T) {
	sa := mpegts.NewSectionAssembler()

	// 没有正在重组的section时收到后续包
	_, err := sa.Push(0x1000, make([]byte, 184), false)
	assert.Equal(t, true, errors.Is(err, base.ErrUnexpectedContinuation))

	// pointer_field越界
	payload := make([]byte, 184)
	payload[0] = 183
	_, err = sa.Push(0x1000, payload, true)
	assert.Equal(t, true, errors.Is(err, base.ErrMalformedSection))

	// 保留位不对
	payload = make([]byte, 184)
	payload[1] = 0x02
	payload[2] = 0x80
	payload[3] = 0x10
	_, err = sa.Push(0x1000, payload, true)
	assert.Equal(t, true, errors.Is(err, base.ErrMalformedSection))

	// section_length为0xFFF，超出4096
	payload[2] = 0xBF
	payload[3] = 0xFF
	_, err = sa.Push(0x1000, payload, true)
	assert.Equal(t, true, errors.Is(err, base.ErrSectionTooLarge))
	assert.Equal(t, false, sa.InProgress())

	// 新的unit start丢弃未完成的section
	elements := []mpegts.PmtProgramElement{
		{StreamType: mpegts.StreamTypeH264, Pid: 0x100, Descriptors: []mpegts.Descriptor{bigDescriptor(200)}},
	}
	section := mpegts.NewPmtSection(1, 0, 0x100, elements).Pack()
	var cc uint8
	b := mpegts.PackSection(0x1000, &cc, section)
	pkt, _ := mpegts.ParseTsPacket(b)
	s, err := sa.Push(0x1000, pkt.Payload, true)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, s == nil)
	s, err = sa.Push(0x1000, pkt.Payload, true)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, s == nil)
	pkt, _ = mpegts.ParseTsPacket(b[mpegts.TsPacketSize:])
	s, err = sa.Push(0x1000, pkt.Payload, false)
	assert.Equal(t, nil, err)
	assert.Equal(t, section, s)
}

func TestParsePat(t *testing.T) {
	programs := []mpegts.PatProgramElement{
		{ProgramNumber: 0, ProgramMapPid: 0x10},
		{ProgramNumber: 1, ProgramMapPid: 0x1000},
		{ProgramNumber: 2, ProgramMapPid: 0x1001},
	}
	section := mpegts.NewPatSection(7, 3, programs).Pack()
	pat, err := mpegts.ParsePat(section)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint16(7), pat.TransportStreamId)
	assert.Equal(t, uint8(3), pat.Version)
	assert.Equal(t, uint8(1), pat.CurrentNext)
	assert.Equal(t, programs, pat.ProgramElements)
	assert.Equal(t, true, pat.SearchPid(0x1001))
	assert.Equal(t, false, pat.SearchPid(0x1002))

	// table_id不对
	bad := append([]byte(nil), section...)
	bad[0] = mpegts.TsPsiIdPms
	_, err = mpegts.ParsePat(bad)
	assert.Equal(t, true, errors.Is(err, base.ErrMalformedSection))

	// section_length超出实际长度
	_, err = mpegts.ParsePat(section[:len(section)-1])
	assert.Equal(t, true, errors.Is(err, base.ErrMalformedSection))
}

func TestParsePmt(t *testing.T) {
	elements := []mpegts.PmtProgramElement{
		{StreamType: mpegts.StreamTypeH264, Pid: 0x100},
		{StreamType: mpegts.StreamTypePrivateData, Pid: 0x101, Descriptors: []mpegts.Descriptor{
			{Tag: mpegts.DescriptorTagISO639LanguageAndAudioType, Data: []byte("fra\x00")},
			{Tag: mpegts.DescriptorTagEnhancedAC3, Data: []byte{0}},
		}},
	}
	section := mpegts.NewPmtSection(5, 2, 0x100, elements).SetCurrentNext(0).Pack()
	pmt, err := mpegts.ParsePmt(0x1000, section)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint16(5), pmt.ProgramNumber)
	assert.Equal(t, uint8(2), pmt.Version)
	assert.Equal(t, uint8(0), pmt.CurrentNext)
	assert.Equal(t, uint16(0x100), pmt.PcrPid)
	assert.Equal(t, 2, len(pmt.ProgramElements))
	assert.Equal(t, true, pmt.SearchPid(0x101) != nil)

	o := mpegts.ApplyDescriptors(pmt.ProgramElements[1].Descriptors)
	assert.Equal(t, base.StreamTypeAudioEac3, o.StreamType)
	assert.Equal(t, "fra", o.Language)

	// es_info_length越界
	bad := append([]byte(nil), section...)
	// 第二个流的ES_info_length低8位，在table头3字节+固定9字节+第一个流5字节+3字节之后
	bad[3+9+5+4] = 0xFF
	_, err = mpegts.ParsePmt(0x1000, bad)
	assert.Equal(t, true, errors.Is(err, base.ErrMalformedSection))
}

func TestApplyDescriptors(t *testing.T) {
	golden := []struct {
		ds []mpegts.Descriptor
		o  mpegts.DescriptorOverride
	}{
		{nil, mpegts.DescriptorOverride{}},
		{[]mpegts.Descriptor{{Tag: mpegts.DescriptorTagAC3}}, mpegts.DescriptorOverride{StreamType: base.StreamTypeAudioAc3}},
		{[]mpegts.Descriptor{{Tag: mpegts.DescriptorTagAC3Atsc}}, mpegts.DescriptorOverride{StreamType: base.StreamTypeAudioAc3}},
		{[]mpegts.Descriptor{{Tag: mpegts.DescriptorTagDts}}, mpegts.DescriptorOverride{StreamType: base.StreamTypeAudioDts}},
		{[]mpegts.Descriptor{{Tag: mpegts.DescriptorTagAac}}, mpegts.DescriptorOverride{StreamType: base.StreamTypeAudioAac}},
		{[]mpegts.Descriptor{{Tag: mpegts.DescriptorTagTeletext}}, mpegts.DescriptorOverride{StreamType: base.StreamTypeDvbTeletext}},
		// 语言描述符长度不够时忽略
		{[]mpegts.Descriptor{{Tag: mpegts.DescriptorTagISO639LanguageAndAudioType, Data: []byte("en")}}, mpegts.DescriptorOverride{}},
		{
			[]mpegts.Descriptor{{Tag: mpegts.DescriptorTagSubtitling, Data: []byte{'d', 'e', 'u', 0x10, 0x00, 0x02, 0x00, 0x03}}},
			mpegts.DescriptorOverride{StreamType: base.StreamTypeDvbSubtitle, Language: "deu", CompositionId: 2, AncillaryId: 3},
		},
	}
	for _, g := range golden {
		assert.Equal(t, g.o, mpegts.ApplyDescriptors(g.ds))
	}

	// 描述符循环被截断
	_, err := mpegts.ParseDescriptors(0x1000, []byte{0x0A, 0x04, 'e', 'n'})
	assert.Equal(t, true, errors.Is(err, base.ErrMalformedSection))
}

func TestMapStreamType(t *testing.T) {
	golden := map[uint8]base.StreamType{
		mpegts.StreamTypeAacAdts:     base.StreamTypeAudioAacAdts,
		mpegts.StreamTypeAacLatm:     base.StreamTypeAudioAacLatm,
		mpegts.StreamTypeH264:        base.StreamTypeVideoH264,
		mpegts.StreamTypeHevc:        base.StreamTypeVideoHevc,
		mpegts.StreamTypeAc3:         base.StreamTypeAudioAc3,
		mpegts.StreamTypeTrueHd:      base.StreamTypeAudioAc3,
		mpegts.StreamTypeEac3:        base.StreamTypeAudioEac3,
		mpegts.StreamTypeEac3Atsc:    base.StreamTypeAudioEac3,
		mpegts.StreamTypeDts:         base.StreamTypeAudioDts,
		mpegts.StreamTypeDtsHd:       base.StreamTypeAudioDts,
		mpegts.StreamTypeDtsHdMa:     base.StreamTypeAudioDts,
		mpegts.StreamTypePrivateData: base.StreamTypePrivateData,
		0x99:                         base.StreamTypeUnknown,
	}
	for k, v := range golden {
		assert.Equal(t, v, mpegts.MapStreamType(k))
	}
}
