// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package ac3

import (
	"github.com/q191201771/naza/pkg/nazabits"

	"github.com/q191201771/tsdemux/pkg/base"
)

// <ATSC A/52> <5.4.1 syncinfo> <5.4.2 bsi> <Annex E.1.2 E-AC-3 bsi>

const (
	SyncWord        = 0x0B77
	HeaderMinLength = 7

	SamplesPerFrame       = 1536 // AC-3 固定 6 个 audio block
	SamplesPerAudioBlock  = 256
	bsidMaxAc3            = 8
	bsidMinEac3           = 11
	bsidMaxEac3           = 16
	fscodReserved         = 3
	frmsizecodMax         = 37
	eac3Fscod2ReducedRate = 3
)

var sampleRates = []int{48000, 44100, 32000}

// 单位kbps，下标为 frmsizecod/2
var bitRates = []int{32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 448, 512, 576, 640}

// acmod -> 声道数，不含lfe
var acmodChannels = []int{2, 1, 2, 3, 3, 4, 4, 5}

var eac3Blocks = []int{1, 2, 3, 6}

type FrameContext struct {
	Eac3       bool
	Bsid       uint8
	SampleRate int
	Channels   int
	BitRate    int // bps，E-AC-3时按帧长估算
	FrameSize  int // 字节
	Samples    int // 该帧的采样数
}

// Duration 帧时长，90kHz
func (ctx *FrameContext) Duration() int64 {
	if ctx.SampleRate == 0 {
		return 0
	}
	return int64(ctx.Samples) * 90000 / int64(ctx.SampleRate)
}

func IsSync(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x0B && b[1] == 0x77
}

// Unpack 解析一个同步帧的头部，AC-3和E-AC-3按bsid区分
func (ctx *FrameContext) Unpack(b []byte) error {
	if len(b) < HeaderMinLength {
		return base.NewErrShortBuffer(HeaderMinLength, len(b), "ac3 header")
	}
	if !IsSync(b) {
		return base.ErrAc3
	}
	ctx.Bsid = b[5] >> 3
	switch {
	case ctx.Bsid <= bsidMaxAc3:
		return ctx.unpackAc3(b)
	case ctx.Bsid >= bsidMinEac3 && ctx.Bsid <= bsidMaxEac3:
		return ctx.unpackEac3(b)
	}
	return base.ErrAc3
}

func (ctx *FrameContext) unpackAc3(b []byte) error {
	ctx.Eac3 = false

	br := nazabits.NewBitReader(b[4:])
	fscod, _ := br.ReadBits8(2)
	frmsizecod, _ := br.ReadBits8(6)
	if fscod == fscodReserved || frmsizecod > frmsizecodMax {
		return base.ErrAc3
	}
	_ = br.SkipBits(5) // bsid
	_ = br.SkipBits(3) // bsmod
	acmod, _ := br.ReadBits8(3)
	// 非单声道、存在中置时有cmixlev
	if acmod&1 == 1 && acmod != 1 {
		_ = br.SkipBits(2)
	}
	// 存在环绕声道时有surmixlev
	if acmod&4 != 0 {
		_ = br.SkipBits(2)
	}
	// 2/0模式有dsurmod
	if acmod == 2 {
		_ = br.SkipBits(2)
	}
	lfeon, err := br.ReadBits8(1)
	if err != nil {
		return base.ErrAc3
	}

	kbps := bitRates[frmsizecod>>1]
	var words int
	switch fscod {
	case 0:
		words = kbps * 2
	case 1:
		words = kbps*320/147 + int(frmsizecod&1)
	case 2:
		words = kbps * 3
	}
	ctx.SampleRate = sampleRates[fscod]
	ctx.Channels = acmodChannels[acmod] + int(lfeon)
	ctx.BitRate = kbps * 1000
	ctx.FrameSize = words * 2
	ctx.Samples = SamplesPerFrame
	return nil
}

func (ctx *FrameContext) unpackEac3(b []byte) error {
	ctx.Eac3 = true

	br := nazabits.NewBitReader(b[2:])
	_ = br.SkipBits(2) // strmtyp
	_ = br.SkipBits(3) // substreamid
	frmsiz, _ := br.ReadBits16(11)
	fscod, _ := br.ReadBits8(2)
	var blocks int
	if fscod == fscodReserved {
		fscod2, _ := br.ReadBits8(2)
		if fscod2 == eac3Fscod2ReducedRate {
			return base.ErrAc3
		}
		ctx.SampleRate = sampleRates[fscod2] / 2
		blocks = 6
	} else {
		numblkscod, _ := br.ReadBits8(2)
		ctx.SampleRate = sampleRates[fscod]
		blocks = eac3Blocks[numblkscod]
	}
	acmod, _ := br.ReadBits8(3)
	lfeon, err := br.ReadBits8(1)
	if err != nil {
		return base.ErrAc3
	}

	ctx.FrameSize = (int(frmsiz) + 1) * 2
	ctx.Channels = acmodChannels[acmod] + int(lfeon)
	ctx.Samples = SamplesPerAudioBlock * blocks
	ctx.BitRate = ctx.FrameSize * 8 * ctx.SampleRate / ctx.Samples
	return nil
}

// IterateFrames 遍历一段内存中的完整同步帧
//
// @return remain: 尾部不完整的帧从该位置开始
//
func IterateFrames(b []byte, handler func(ctx *FrameContext, frame []byte)) (remain int) {
	i := 0
	for i+HeaderMinLength <= len(b) {
		if !IsSync(b[i:]) {
			i++
			continue
		}
		var ctx FrameContext
		if err := ctx.Unpack(b[i:]); err != nil || ctx.FrameSize < HeaderMinLength {
			i++
			continue
		}
		end := i + ctx.FrameSize
		if end > len(b) {
			break
		}
		handler(&ctx, b[i:end])
		i = end
	}
	return i
}
