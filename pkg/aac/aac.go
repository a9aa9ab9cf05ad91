// Copyright 2019, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package aac

import (
	"github.com/q191201771/naza/pkg/nazabits"

	"github.com/q191201771/tsdemux/pkg/base"
)

// AudioSpecificConfig(asc)
//
// ADTS(Audio Data Transport Stream)
// e.g. es, ts
//

const (
	AdtsHeaderLength = 7

	AscSamplingFrequencyIndex48000 = 3
	AscSamplingFrequencyIndex44100 = 4

	// SamplesPerFrame 一个AAC raw data block的采样数
	SamplesPerFrame = 1024
)

// <ISO_IEC_14496-3.pdf> <1.6.3.3 samplingFrequencyIndex>
var samplingFrequencies = []int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

// <ISO_IEC_14496-3.pdf>
// <1.6.2.1 AudioSpecificConfig>, <page 33/110>
// <1.5.1.1 Audio Object type definition>, <page 23/110>
// <1.6.3.3 samplingFrequencyIndex>, <page 35/110>
// <1.6.3.4 channelConfiguration>
// --------------------------------------------------------
// audio object type      [5b] 1=AAC MAIN  2=AAC LC
// samplingFrequencyIndex [4b] 3=48000  4=44100  6=24000  5=32000  11=11025
// channelConfiguration   [4b] 1=center front speaker  2=left, right front speakers
type AscContext struct {
	AudioObjectType        uint8 // [5b]
	SamplingFrequencyIndex uint8 // [4b]
	ChannelConfiguration   uint8 // [4b]
}

// PackToAdtsHeader 用于构造ADTS流
//
// @param frameLength: raw aac frame的大小，不包含ADTS头
//
func (ascCtx *AscContext) PackToAdtsHeader(out []byte, frameLength int) error {
	if len(out) < AdtsHeaderLength {
		return base.NewErrShortBuffer(AdtsHeaderLength, len(out), "adts header")
	}

	// <ISO_IEC_14496-3.pdf>
	// <1.A.2.2.1 Fixed Header of ADTS>, <page 75/110>
	// <1.A.2.2.2 Variable Header of ADTS>, <page 76/110>
	// <1.A.3.2.1 Definitions: Bitstream elements for ADTS>
	// ----------------------------------------------------
	// Syncword                 [12b] '1111 1111 1111'
	// ID                       [1b]  1=MPEG-2 AAC 0=MPEG-4
	// Layer                    [2b]
	// protection_absent        [1b]  1=no crc check
	// Profile_ObjectType       [2b]
	// sampling_frequency_index [4b]
	// private_bit              [1b]
	// channel_configuration    [3b]
	// origin/copy              [1b]
	// home                     [1b]
	// ------------------------------------
	// copyright_identification_bit   [1b]
	// copyright_identification_start [1b]
	// aac_frame_length               [13b]
	// adts_buffer_fullness           [11b]
	// no_raw_data_blocks_in_frame    [2b]

	bw := nazabits.NewBitWriter(out)
	bw.WriteBits16(12, 0xFFF)
	bw.WriteBits8(4, 0x1)
	bw.WriteBits8(2, ascCtx.AudioObjectType-1)
	bw.WriteBits8(4, ascCtx.SamplingFrequencyIndex)
	bw.WriteBits8(1, 0)
	bw.WriteBits8(3, ascCtx.ChannelConfiguration)
	bw.WriteBits8(4, 0)
	bw.WriteBits16(13, uint16(frameLength+AdtsHeaderLength))
	bw.WriteBits16(11, 0x7FF)
	bw.WriteBits8(2, 0)
	return nil
}

func (ascCtx *AscContext) GetSamplingFrequency() (int, error) {
	if int(ascCtx.SamplingFrequencyIndex) >= len(samplingFrequencies) {
		return -1, base.ErrSamplingFrequencyIndex
	}
	return samplingFrequencies[ascCtx.SamplingFrequencyIndex], nil
}

type AdtsHeaderContext struct {
	AscCtx AscContext

	AdtsLength uint16 // 字段中的值，包含了adts header + adts frame

	// NumberOfRawDataBlocks no_raw_data_blocks_in_frame+1，一个ADTS帧中AAC帧的个数
	NumberOfRawDataBlocks uint8
}

// IsAdtsSync 是否以ADTS同步字开始
func IsAdtsSync(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFF && b[1]&0xF6 == 0xF0
}

// Unpack
//
// @param adtsHeader: 函数调用结束后，内部不持有该内存块
//
func (ctx *AdtsHeaderContext) Unpack(adtsHeader []byte) error {
	if len(adtsHeader) < AdtsHeaderLength {
		return base.NewErrShortBuffer(AdtsHeaderLength, len(adtsHeader), "adts header")
	}
	if !IsAdtsSync(adtsHeader) {
		return base.ErrAac
	}

	br := nazabits.NewBitReader(adtsHeader)
	_ = br.SkipBits(16)
	v, _ := br.ReadBits8(2)
	ctx.AscCtx.AudioObjectType = v + 1
	ctx.AscCtx.SamplingFrequencyIndex, _ = br.ReadBits8(4)
	_ = br.SkipBits(1)
	ctx.AscCtx.ChannelConfiguration, _ = br.ReadBits8(3)
	_ = br.SkipBits(4)
	ctx.AdtsLength, _ = br.ReadBits16(13)
	_ = br.SkipBits(11)
	n, _ := br.ReadBits8(2)
	ctx.NumberOfRawDataBlocks = n + 1

	if ctx.AdtsLength < AdtsHeaderLength {
		return base.ErrAac
	}
	return nil
}

// Duration ADTS帧的时长，90kHz
func (ctx *AdtsHeaderContext) Duration() (int64, error) {
	sf, err := ctx.AscCtx.GetSamplingFrequency()
	if err != nil {
		return 0, err
	}
	return int64(ctx.NumberOfRawDataBlocks) * SamplesPerFrame * 90000 / int64(sf), nil
}

// IterateAdts 遍历一段内存中的完整ADTS帧
//
// @return remain: 尾部不完整的帧从该位置开始
//
func IterateAdts(b []byte, handler func(ctx *AdtsHeaderContext, frame []byte)) (remain int) {
	i := 0
	for i+AdtsHeaderLength <= len(b) {
		if !IsAdtsSync(b[i:]) {
			// 跳过垃圾数据，找下一个同步字
			i++
			continue
		}
		var ctx AdtsHeaderContext
		if err := ctx.Unpack(b[i:]); err != nil {
			i++
			continue
		}
		end := i + int(ctx.AdtsLength)
		if end > len(b) {
			break
		}
		handler(&ctx, b[i:end])
		i = end
	}
	return i
}
