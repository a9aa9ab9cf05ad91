// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "fmt"

// StreamType 基本流的编码类别。由PMT中的stream_type映射得到，描述符可以覆盖
type StreamType uint8

const (
	StreamTypeUnknown StreamType = iota
	StreamTypeVideoMpeg1
	StreamTypeVideoMpeg2
	StreamTypeVideoMpeg4
	StreamTypeVideoH264
	StreamTypeVideoHevc
	StreamTypeVideoVc1
	StreamTypeAudioMpeg1
	StreamTypeAudioMpeg2
	StreamTypeAudioAac
	StreamTypeAudioAacAdts
	StreamTypeAudioAacLatm
	StreamTypeAudioAc3
	StreamTypeAudioEac3
	StreamTypeAudioLpcm
	StreamTypeAudioDts
	StreamTypePrivateData
	StreamTypeDvbTeletext
	StreamTypeDvbSubtitle
)

var streamTypeNames = map[StreamType]string{
	StreamTypeUnknown:      "unknown",
	StreamTypeVideoMpeg1:   "mpeg1video",
	StreamTypeVideoMpeg2:   "mpeg2video",
	StreamTypeVideoMpeg4:   "mpeg4video",
	StreamTypeVideoH264:    "h264",
	StreamTypeVideoHevc:    "hevc",
	StreamTypeVideoVc1:     "vc1",
	StreamTypeAudioMpeg1:   "mp1",
	StreamTypeAudioMpeg2:   "mp2",
	StreamTypeAudioAac:     "aac",
	StreamTypeAudioAacAdts: "aac",
	StreamTypeAudioAacLatm: "aac_latm",
	StreamTypeAudioAc3:     "ac3",
	StreamTypeAudioEac3:    "eac3",
	StreamTypeAudioLpcm:    "lpcm",
	StreamTypeAudioDts:     "dts",
	StreamTypePrivateData:  "private data",
	StreamTypeDvbTeletext:  "teletext",
	StreamTypeDvbSubtitle:  "dvbsub",
}

func (st StreamType) String() string {
	if name, ok := streamTypeNames[st]; ok {
		return name
	}
	return fmt.Sprintf("StreamType(%d)", uint8(st))
}

func (st StreamType) IsVideo() bool {
	return st >= StreamTypeVideoMpeg1 && st <= StreamTypeVideoVc1
}

func (st StreamType) IsAudio() bool {
	return st >= StreamTypeAudioMpeg1 && st <= StreamTypeAudioDts
}

// StreamInfo 基本流的编码信息
//
// 一部分来自PMT中的描述符（Language, CompositionId, AncillaryId），其余由sink解析码流后填充
type StreamInfo struct {
	CodecName     string
	Language      string // ISO 639, 3 characters
	CompositionId uint16
	AncillaryId   uint16
	FpsScale      int
	FpsRate       int
	Interlaced    bool
	Width         int
	Height        int
	Aspect        float64
	Channels      int
	SampleRate    int
	BlockAlign    int
	BitRate       int
	BitsPerSample int
}

// Identifier DVB字幕流的标识，由composition_page_id和ancillary_page_id拼接而成
func (si StreamInfo) Identifier() uint32 {
	c := uint32(si.CompositionId)
	a := uint32(si.AncillaryId)
	return ((c & 0xff00) >> 8) | ((c & 0xff) << 8) | ((a & 0xff00) << 16) | ((a & 0xff) << 24)
}

// ElementaryStream 基本流的接收端，每个PES PID持有一个
//
// 调用方（mpegts.Context）保证对同一个ElementaryStream的调用都在同一个goroutine中
type ElementaryStream interface {
	// Append 喂入PES payload。unitBoundary为true表示这是一个新的PES包（新的access unit）的第一段数据
	Append(data []byte, unitBoundary bool)

	// EndUnit 结束当前的access unit，返回该unit的时长，单位为90kHz，无法计算时返回0
	//
	// 调用后sink内部待解析的数据被清空
	EndUnit() int64

	// Reset 丢弃所有待解析的数据，比如检测到continuity counter不连续时
	Reset()

	CodecName() string
	StreamInfo() StreamInfo
}
