// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc_test

import (
	"testing"

	"github.com/q191201771/naza/pkg/assert"

	"github.com/q191201771/tsdemux/pkg/avc"
	"github.com/q191201771/tsdemux/pkg/innertest"
)

func TestParseSps(t *testing.T) {
	var ctx avc.Context
	err := avc.ParseSps(innertest.AvcSps(), &ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(66), ctx.Profile)
	assert.Equal(t, uint8(31), ctx.Level)
	assert.Equal(t, uint32(innertest.AvcWidth), ctx.Width)
	assert.Equal(t, uint32(innertest.AvcHeight), ctx.Height)
	assert.Equal(t, false, ctx.Interlaced)
	assert.Equal(t, float64(1280)/float64(720), ctx.Aspect)
	assert.Equal(t, uint32(innertest.AvcTimeScale), ctx.FpsRate)
	assert.Equal(t, uint32(2*innertest.AvcNumUnitsInTick), ctx.FpsScale)
	assert.Equal(t, int64(innertest.AvcFrameDuration), ctx.FrameDuration())

	ctx = avc.Context{}
	err = avc.ParseSps(innertest.AvcHighSps(), &ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(100), ctx.Profile)
	assert.Equal(t, uint32(1920), ctx.Width)
	assert.Equal(t, uint32(1080), ctx.Height)
	assert.Equal(t, true, ctx.Interlaced)
	assert.Equal(t, float64(0), ctx.Aspect)
	assert.Equal(t, int64(0), ctx.FrameDuration())
}

func TestParseSpsError(t *testing.T) {
	var ctx avc.Context
	assert.IsNotNil(t, avc.ParseSps(nil, &ctx))

	sps := innertest.AvcSps()
	assert.IsNotNil(t, avc.ParseSps(sps[:4], &ctx))

	// 截断在VUI中，宽高依然可以解析出来
	ctx = avc.Context{}
	err := avc.ParseSps(sps[:10], &ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(innertest.AvcWidth), ctx.Width)
	assert.Equal(t, uint32(0), ctx.FpsRate)
}

func TestCalcSliceType(t *testing.T) {
	st, err := avc.CalcSliceType([]byte{0x65, 0x88})
	assert.Equal(t, nil, err)
	assert.Equal(t, avc.SliceTypeI, st)
	assert.Equal(t, "I", avc.CalcSliceTypeReadable([]byte{0x65, 0x88}))
	assert.Equal(t, "P", avc.CalcSliceTypeReadable([]byte{0x41, 0x9A}))
	assert.Equal(t, "unknown", avc.CalcSliceTypeReadable([]byte{0x41}))

	assert.Equal(t, avc.NaluUnitTypeIDRSlice, avc.CalcNaluType([]byte{0x65}))
	assert.Equal(t, "SPS", avc.CalcNaluTypeReadable([]byte{0x67}))
	assert.Equal(t, "unknown", avc.CalcNaluTypeReadable([]byte{0x7F}))
}
