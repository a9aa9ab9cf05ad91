// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package h2645_test

import (
	"testing"

	"github.com/q191201771/naza/pkg/assert"

	"github.com/q191201771/tsdemux/pkg/h2645"
)

func TestIterateNaluStartCode(t *testing.T) {
	b := []byte{0x11, 0, 0, 1, 0x67, 0, 0, 0, 1, 0x68, 0, 0, 0, 0, 1, 0x65}
	pos, length := h2645.IterateNaluStartCode(b, 0)
	assert.Equal(t, 4, pos)
	assert.Equal(t, 3, length)
	pos, length = h2645.IterateNaluStartCode(b, pos)
	assert.Equal(t, 9, pos)
	assert.Equal(t, 4, length)
	pos, length = h2645.IterateNaluStartCode(b, pos)
	assert.Equal(t, 15, pos)
	assert.Equal(t, 4, length)
	pos, _ = h2645.IterateNaluStartCode(b, pos)
	assert.Equal(t, -1, pos)
	pos, _ = h2645.IterateNaluStartCode(nil, 0)
	assert.Equal(t, -1, pos)
}

func TestIterateNaluAnnexb(t *testing.T) {
	b := []byte{0xAA, 0, 0, 1, 0x67, 0x42, 0, 0, 0, 1, 0x68, 0xCE, 0, 0, 0, 0, 1, 0x65, 0x88, 0}
	var nals [][]byte
	h2645.IterateNaluAnnexb(b, func(nal []byte) {
		nals = append(nals, nal)
	})
	assert.Equal(t, [][]byte{{0x67, 0x42}, {0x68, 0xCE}, {0x65, 0x88, 0}}, nals)

	nals = nil
	h2645.IterateNaluAnnexb([]byte{0x01, 0x02}, func(nal []byte) {
		nals = append(nals, nal)
	})
	assert.Equal(t, 0, len(nals))

	// 起始码之后没有数据
	h2645.IterateNaluAnnexb([]byte{0, 0, 1}, func(nal []byte) {
		nals = append(nals, nal)
	})
	assert.Equal(t, 0, len(nals))
}

func TestEbspToRbsp(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 1, 0, 0, 0, 0x11}, h2645.EbspToRbsp([]byte{0, 0, 3, 1, 0, 0, 3, 0, 0x11}))
	assert.Equal(t, []byte{0, 3, 0, 3}, h2645.EbspToRbsp([]byte{0, 3, 0, 3}))
	assert.Equal(t, []byte{}, h2645.EbspToRbsp(nil))
}

func TestParseNaluType(t *testing.T) {
	assert.Equal(t, h2645.H264NaluTypeSps, h2645.ParseNaluType(true, 0x67))
	assert.Equal(t, h2645.H265NaluTypeSps, h2645.ParseNaluType(false, 0x42))
}
