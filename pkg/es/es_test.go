// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package es_test

import (
	"testing"

	"github.com/q191201771/naza/pkg/assert"

	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/es"
	"github.com/q191201771/tsdemux/pkg/innertest"
)

// feed 把`b`切成小块喂给sink，模拟多个TS包的payload
func feed(s base.ElementaryStream, b []byte, chunk int) {
	first := true
	for len(b) > 0 {
		n := chunk
		if n > len(b) {
			n = len(b)
		}
		s.Append(b[:n], first)
		first = false
		b = b[n:]
	}
}

func TestNew(t *testing.T) {
	info := base.StreamInfo{Language: "eng"}

	golden := map[base.StreamType]string{
		base.StreamTypeVideoH264:    "h264",
		base.StreamTypeVideoHevc:    "hevc",
		base.StreamTypeAudioAac:     "aac",
		base.StreamTypeAudioAacAdts: "aac",
		base.StreamTypeAudioAc3:     "ac3",
		base.StreamTypeAudioEac3:    "eac3",
		base.StreamTypeAudioMpeg2:   "mp2",
		base.StreamTypeDvbSubtitle:  "dvbsub",
	}
	for st, name := range golden {
		s := es.New(st, 0x100, info)
		assert.Equal(t, name, s.CodecName())
		assert.Equal(t, "eng", s.StreamInfo().Language)
	}

	_, ok := es.New(base.StreamTypeVideoH264, 0x100, info).(*es.AvcStream)
	assert.Equal(t, true, ok)
	_, ok = es.New(base.StreamTypeAudioAacAdts, 0x100, info).(*es.AacStream)
	assert.Equal(t, true, ok)
	_, ok = es.New(base.StreamTypeVideoMpeg2, 0x100, info).(*es.RawStream)
	assert.Equal(t, true, ok)

	// 调用方指定的CodecName不会被覆盖
	s := es.NewRaw(base.StreamTypePrivateData, base.StreamInfo{CodecName: "klv"})
	assert.Equal(t, "klv", s.CodecName())
}

func TestAvcStream(t *testing.T) {
	s := es.NewAvcStream(0x100, base.StreamInfo{})
	feed(s, innertest.AvcAccessUnit(false, 500), 184)
	assert.Equal(t, int64(0), s.EndUnit())
	assert.Equal(t, 0, s.StreamInfo().Width)

	feed(s, innertest.AvcAccessUnit(true, 500), 184)
	assert.Equal(t, int64(innertest.AvcFrameDuration), s.EndUnit())
	info := s.StreamInfo()
	assert.Equal(t, innertest.AvcWidth, info.Width)
	assert.Equal(t, innertest.AvcHeight, info.Height)
	assert.Equal(t, innertest.AvcTimeScale, info.FpsRate)
	assert.Equal(t, 2*innertest.AvcNumUnitsInTick, info.FpsScale)
	assert.Equal(t, false, info.Interlaced)
	assert.Equal(t, 1, s.KeyFrames())

	// 之后的非关键帧沿用SPS中的帧率
	feed(s, innertest.AvcAccessUnit(false, 500), 184)
	assert.Equal(t, int64(innertest.AvcFrameDuration), s.EndUnit())
	assert.Equal(t, 1, s.KeyFrames())

	// Reset之后，未结束的unit被丢弃
	feed(s, innertest.AvcAccessUnit(true, 500), 184)
	s.Reset()
	s.EndUnit()
	assert.Equal(t, 1, s.KeyFrames())
}

func TestHevcStream(t *testing.T) {
	s := es.NewHevcStream(0x100, base.StreamInfo{})
	feed(s, innertest.HevcAccessUnit(300), 100)
	assert.Equal(t, int64(0), s.EndUnit())
	assert.Equal(t, 1920, s.StreamInfo().Width)
	assert.Equal(t, 1080, s.StreamInfo().Height)
	assert.Equal(t, "hevc", s.CodecName())
}

func TestAacStream(t *testing.T) {
	s := es.NewAacStream(0x101, base.StreamInfo{})
	feed(s, innertest.AdtsFrames(4, 300), 184)
	assert.Equal(t, int64(4*innertest.AacFrameDuration), s.EndUnit())
	assert.Equal(t, innertest.AacSampleRate, s.StreamInfo().SampleRate)
	assert.Equal(t, innertest.AacChannels, s.StreamInfo().Channels)
	assert.Equal(t, 4, s.Frames())

	// 新的unit开始时，之前没有结束的数据被丢弃
	s.Append(innertest.AdtsFrames(1, 300), true)
	feed(s, innertest.AdtsFrames(2, 300), 184)
	assert.Equal(t, int64(2*innertest.AacFrameDuration), s.EndUnit())
	assert.Equal(t, 6, s.Frames())

	// 尾部不完整的帧不计算时长
	b := innertest.AdtsFrames(2, 300)
	feed(s, b[:len(b)-10], 184)
	assert.Equal(t, int64(innertest.AacFrameDuration), s.EndUnit())
}

func TestAc3Stream(t *testing.T) {
	s := es.NewAc3Stream(0x102, base.StreamTypeAudioAc3, base.StreamInfo{})
	assert.Equal(t, "ac3", s.CodecName())

	var b []byte
	b = append(b, innertest.Ac3Frame()...)
	b = append(b, innertest.Ac3Frame()...)
	feed(s, b, 184)
	assert.Equal(t, int64(2*innertest.Ac3FrameDuration), s.EndUnit())
	assert.Equal(t, 48000, s.StreamInfo().SampleRate)
	assert.Equal(t, 2, s.StreamInfo().Channels)
	assert.Equal(t, 64000, s.StreamInfo().BitRate)
	assert.Equal(t, 2, s.Frames())

	// PMT中声明为ac3，码流实际是eac3
	feed(s, innertest.Eac3Frame(), 184)
	assert.Equal(t, int64(innertest.Eac3FrameDuration), s.EndUnit())
	assert.Equal(t, "eac3", s.CodecName())
	assert.Equal(t, 3, s.StreamInfo().Channels)
}

func TestRawStream(t *testing.T) {
	s := es.NewRaw(base.StreamTypeVideoMpeg2, base.StreamInfo{}).(*es.RawStream)
	assert.Equal(t, "mpeg2video", s.CodecName())

	feed(s, make([]byte, 1000), 184)
	assert.Equal(t, int64(0), s.EndUnit())
	// 空unit不计数
	s.EndUnit()
	assert.Equal(t, 1, s.Units())
	assert.Equal(t, int64(1000), s.Bytes())

	// 超过上限后，该unit剩余的数据被丢弃
	big := make([]byte, base.EsMaxUnitSize-10)
	s.Append(big, true)
	s.Append(make([]byte, 100), false)
	s.Append(make([]byte, 5), false)
	s.EndUnit()
	assert.Equal(t, 2, s.Units())
	assert.Equal(t, int64(1000+base.EsMaxUnitSize-10), s.Bytes())

	// 下一个unit恢复正常
	s.Append(make([]byte, 10), true)
	s.EndUnit()
	assert.Equal(t, 3, s.Units())
	assert.Equal(t, int64(1000+base.EsMaxUnitSize), s.Bytes())
}
