// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc_test

import (
	"testing"

	"github.com/q191201771/naza/pkg/assert"

	"github.com/q191201771/tsdemux/pkg/hevc"
	"github.com/q191201771/tsdemux/pkg/innertest"
)

func TestParseSps(t *testing.T) {
	var ctx hevc.Context
	err := hevc.ParseSps(innertest.HevcSps(), &ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(1), ctx.GeneralProfileIdc)
	assert.Equal(t, uint8(93), ctx.GeneralLevelIdc)
	assert.Equal(t, uint32(1), ctx.ChromaFormatIdc)
	assert.Equal(t, uint32(1920), ctx.Width)
	assert.Equal(t, uint32(1080), ctx.Height)
	assert.Equal(t, false, ctx.Interlaced)

	// 不是SPS
	assert.IsNotNil(t, hevc.ParseSps([]byte{0x40, 0x01, 0x0C}, &ctx))
	assert.IsNotNil(t, hevc.ParseSps([]byte{0x42}, &ctx))
	// 截断
	assert.IsNotNil(t, hevc.ParseSps(innertest.HevcSps()[:8], &ctx))
}

func TestCalcNaluType(t *testing.T) {
	assert.Equal(t, uint8(33), hevc.CalcNaluType([]byte{0x42, 0x01}))
	assert.Equal(t, "SPS", hevc.CalcNaluTypeReadable([]byte{0x42, 0x01}))
	assert.Equal(t, "VPS", hevc.CalcNaluTypeReadable([]byte{0x40, 0x01}))
	assert.Equal(t, "I", hevc.CalcNaluTypeReadable([]byte{0x26, 0x01}))
	assert.Equal(t, "unknown", hevc.CalcNaluTypeReadable([]byte{0x30, 0x01}))
}
