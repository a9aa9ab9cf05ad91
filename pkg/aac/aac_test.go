// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package aac_test

import (
	"testing"

	"github.com/q191201771/naza/pkg/assert"

	"github.com/q191201771/tsdemux/pkg/aac"
	"github.com/q191201771/tsdemux/pkg/innertest"
)

func TestAdtsHeader(t *testing.T) {
	asc := aac.AscContext{
		AudioObjectType:        2,
		SamplingFrequencyIndex: aac.AscSamplingFrequencyIndex44100,
		ChannelConfiguration:   1,
	}
	out := make([]byte, aac.AdtsHeaderLength)
	assert.Equal(t, nil, asc.PackToAdtsHeader(out, 100))
	assert.Equal(t, true, aac.IsAdtsSync(out))

	var ctx aac.AdtsHeaderContext
	assert.Equal(t, nil, ctx.Unpack(out))
	assert.Equal(t, asc, ctx.AscCtx)
	assert.Equal(t, uint16(107), ctx.AdtsLength)
	assert.Equal(t, uint8(1), ctx.NumberOfRawDataBlocks)
	d, err := ctx.Duration()
	assert.Equal(t, nil, err)
	assert.Equal(t, int64(1024*90000/44100), d)

	assert.IsNotNil(t, asc.PackToAdtsHeader(out[:3], 100))
	assert.IsNotNil(t, ctx.Unpack(out[:6]))
	assert.IsNotNil(t, ctx.Unpack([]byte{0xFF, 0x00, 0, 0, 0, 0, 0}))

	ctx.AscCtx.SamplingFrequencyIndex = 15
	_, err = ctx.Duration()
	assert.IsNotNil(t, err)
}

func TestIterateAdts(t *testing.T) {
	frames := innertest.AdtsFrames(3, 50)

	var b []byte
	b = append(b, 0x12, 0x34)
	b = append(b, frames...)
	// 尾部不完整的帧
	b = append(b, frames[:20]...)

	var n int
	var duration int64
	remain := aac.IterateAdts(b, func(ctx *aac.AdtsHeaderContext, frame []byte) {
		n++
		d, _ := ctx.Duration()
		duration += d
		assert.Equal(t, 57, len(frame))
	})
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(3*innertest.AacFrameDuration), duration)
	assert.Equal(t, 2+len(frames), remain)
}
