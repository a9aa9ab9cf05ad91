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

const (
	DescriptorTagAC3                        = 0x6a
	DescriptorTagAC3Atsc                    = 0x81
	DescriptorTagAVCVideo                   = 0x28
	DescriptorTagComponent                  = 0x50
	DescriptorTagContent                    = 0x54
	DescriptorTagDataStreamAlignment        = 0x6
	DescriptorTagEnhancedAC3                = 0x7a
	DescriptorTagDts                        = 0x7b
	DescriptorTagAac                        = 0x7c
	DescriptorTagExtendedEvent              = 0x4e
	DescriptorTagExtension                  = 0x7f
	DescriptorTagISO639LanguageAndAudioType = 0xa
	DescriptorTagLocalTimeOffset            = 0x58
	DescriptorTagMaximumBitrate             = 0xe
	DescriptorTagNetworkName                = 0x40
	DescriptorTagParentalRating             = 0x55
	DescriptorTagPrivateDataIndicator       = 0xf
	DescriptorTagPrivateDataSpecifier       = 0x5f
	DescriptorTagRegistration               = 0x5
	DescriptorTagService                    = 0x48
	DescriptorTagShortEvent                 = 0x4d
	DescriptorTagStreamIdentifier           = 0x52
	DescriptorTagSubtitling                 = 0x59
	DescriptorTagTeletext                   = 0x56
	DescriptorTagVBIData                    = 0x45
	DescriptorTagVBITeletext                = 0x46
)

// Descriptor
//
// ------------------------------
// descriptor_tag    [8b]
// descriptor_length [8b]
// data              [descriptor_length bytes]
// ------------------------------
//
type Descriptor struct {
	Tag  uint8
	Data []byte
}

// ParseDescriptors 解析一段描述符循环
//
// 返回的Descriptor.Data指向`b`的内存块
//
func ParseDescriptors(pid uint16, b []byte) (ds []Descriptor, err error) {
	for i := 0; i < len(b); {
		if i+2 > len(b) {
			return ds, base.NewErrMalformedSection(pid, "descriptor header truncated")
		}
		tag := b[i]
		l := int(b[i+1])
		i += 2
		if i+l > len(b) {
			return ds, base.NewErrMalformedSection(pid, "descriptor data truncated")
		}
		ds = append(ds, Descriptor{Tag: tag, Data: b[i : i+l]})
		i += l
	}
	return
}

// DescriptorOverride 描述符对一路es的影响
type DescriptorOverride struct {
	StreamType    base.StreamType // StreamTypeUnknown 表示不修改PMT中stream_type映射出的类型
	Language      string
	CompositionId uint16
	AncillaryId   uint16
}

// ApplyDescriptors 按描述符修正stream type，并提取语言、字幕id等信息
//
// 多个描述符都能修改stream type时，以最后一个为准
//
func ApplyDescriptors(ds []Descriptor) (o DescriptorOverride) {
	for _, d := range ds {
		switch d.Tag {
		case DescriptorTagISO639LanguageAndAudioType:
			if len(d.Data) >= 4 {
				o.Language = string(d.Data[:3])
			}
		case DescriptorTagTeletext:
			o.StreamType = base.StreamTypeDvbTeletext
		case DescriptorTagAC3, DescriptorTagAC3Atsc:
			o.StreamType = base.StreamTypeAudioAc3
		case DescriptorTagEnhancedAC3:
			o.StreamType = base.StreamTypeAudioEac3
		case DescriptorTagDts:
			o.StreamType = base.StreamTypeAudioDts
		case DescriptorTagAac:
			o.StreamType = base.StreamTypeAudioAac
		case DescriptorTagSubtitling:
			// ISO_639_language_code [24b], subtitling_type [8b], composition_page_id [16b], ancillary_page_id [16b]
			if len(d.Data) >= 8 {
				o.StreamType = base.StreamTypeDvbSubtitle
				o.Language = string(d.Data[:3])
				o.CompositionId = bele.BeUint16(d.Data[4:])
				o.AncillaryId = bele.BeUint16(d.Data[6:])
			}
		}
	}
	return
}

// MapStreamType PMT中的stream_type映射为es的编码类别
func MapStreamType(t uint8) base.StreamType {
	switch t {
	case StreamTypeMpeg1Video:
		return base.StreamTypeVideoMpeg1
	case StreamTypeMpeg2Video:
		return base.StreamTypeVideoMpeg2
	case StreamTypeMpeg1Audio:
		return base.StreamTypeAudioMpeg1
	case StreamTypeMpeg2Audio:
		return base.StreamTypeAudioMpeg2
	case StreamTypePrivateData:
		return base.StreamTypePrivateData
	case StreamTypeAacAdts:
		return base.StreamTypeAudioAacAdts
	case StreamTypeAacLatm:
		return base.StreamTypeAudioAacLatm
	case StreamTypeMpeg4Video:
		return base.StreamTypeVideoMpeg4
	case StreamTypeH264:
		return base.StreamTypeVideoH264
	case StreamTypeHevc:
		return base.StreamTypeVideoHevc
	case StreamTypeVc1:
		return base.StreamTypeVideoVc1
	case StreamTypeLpcm:
		return base.StreamTypeAudioLpcm
	case StreamTypeAc3, StreamTypeTrueHd:
		return base.StreamTypeAudioAc3
	case StreamTypeEac3, StreamTypeEac3Atsc:
		return base.StreamTypeAudioEac3
	case StreamTypeDts, StreamTypeDtsHd, StreamTypeDtsHdMa:
		return base.StreamTypeAudioDts
	}
	return base.StreamTypeUnknown
}
