// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/q191201771/naza/pkg/assert"

	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/innertest"
	"github.com/q191201771/tsdemux/pkg/mpegts"
)

func TestDemuxerPacketSize(t *testing.T) {
	sb := innertest.EntryStream()
	sb.PacketSize = mpegts.TsPacketSize
	d := mpegts.NewDemuxer(mpegts.NewBytesReader(sb.Bytes()))
	assert.Equal(t, nil, d.Run(context.Background()))
	expected := d.Packets()

	for _, size := range []int{mpegts.TsPacketSizeM2ts, mpegts.TsPacketSizeDvbAsi, mpegts.TsPacketSizeAtsc} {
		sb.PacketSize = size
		r := mpegts.NewBufferedReader(bytes.NewReader(sb.Bytes()), 4096)
		d := mpegts.NewDemuxer(r)
		assert.Equal(t, nil, d.Run(context.Background()))
		assert.Equal(t, size, d.PacketSize())
		assert.Equal(t, expected, d.Packets())
		assert.Equal(t, 3, len(d.Streams()))
	}
}

func TestDemuxerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := mpegts.NewDemuxer(mpegts.NewBytesReader(innertest.EntryStream().Bytes()))
	err := d.Run(ctx)
	assert.Equal(t, true, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, len(d.Packets()))
	assert.Equal(t, mpegts.TsPacketSize, d.PacketSize())
}

func TestDemuxerNoSync(t *testing.T) {
	d := mpegts.NewDemuxer(mpegts.NewBytesReader(nil))
	assert.Equal(t, true, errors.Is(d.Run(context.Background()), base.ErrIo))

	d = mpegts.NewDemuxer(mpegts.NewBytesReader(make([]byte, 188*10)))
	assert.Equal(t, true, errors.Is(d.Run(context.Background()), base.ErrNoSync))
	assert.Equal(t, 0, len(d.Packets()))
}

func TestDemuxerGarbage(t *testing.T) {
	sb := innertest.EntryStream()
	clean := sb.Bytes()

	// 头部以及中间插入垃圾数据，之后的包依然可以解析出来
	var b []byte
	b = append(b, bytes.Repeat([]byte{0x11}, 500)...)
	b = append(b, clean[:188*20]...)
	b = append(b, bytes.Repeat([]byte{0x22}, 77)...)
	b = append(b, clean[188*20:]...)

	d := mpegts.NewDemuxer(mpegts.NewBytesReader(b))
	assert.Equal(t, nil, d.Run(context.Background()))
	assert.Equal(t, uint64(len(clean)/188), d.Stats().Packets)
	assert.Equal(t, innertest.StartDts, d.StartTimestamp())
	assert.Equal(t, uint64(0), d.Stats().Discontinuities)
	assert.Equal(t, 3*innertest.EntryFrameNum, len(d.Packets()))
}
