// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package innertest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/asticode/go-astits"
	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/naza/pkg/nazalog"

	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/mpegts"
)

// 构造一个包含h264、aac、ac3三路es的节目，分别用mpegts.Demuxer和go-astits解析，
// 对比每个PID的PTS序列，并检查时长回填、编码信息以及起始时间戳

const (
	PmtPid   = uint16(0x1000)
	VideoPid = uint16(0x100)
	AacPid   = uint16(0x101)
	Ac3Pid   = uint16(0x102)

	ProgramNumber = uint16(1)
	StartDts      = int64(900000)

	EntryFrameNum = 30
)

// EntryStream 三路es交替排列，视频每10帧一个关键帧，音频每个PES一帧
func EntryStream() *StreamBuilder {
	sb := NewStreamBuilder()
	sb.AddPat(0, mpegts.PatProgramElement{ProgramNumber: ProgramNumber, ProgramMapPid: PmtPid})
	sb.AddPmt(PmtPid, ProgramNumber, 0, VideoPid,
		mpegts.PmtProgramElement{StreamType: mpegts.StreamTypeH264, Pid: VideoPid},
		mpegts.PmtProgramElement{StreamType: mpegts.StreamTypeAacAdts, Pid: AacPid},
		mpegts.PmtProgramElement{StreamType: mpegts.StreamTypePrivateData, Pid: Ac3Pid, Descriptors: []mpegts.Descriptor{
			{Tag: mpegts.DescriptorTagISO639LanguageAndAudioType, Data: []byte{'e', 'n', 'g', 0}},
			{Tag: mpegts.DescriptorTagAC3, Data: []byte{0}},
		}},
	)

	for i := 0; i < EntryFrameNum; i++ {
		dts := StartDts + int64(i)*AvcFrameDuration
		sb.AddFrame(mpegts.Frame{
			Pts: dts + AvcFrameDuration,
			Dts: dts,
			Pid: VideoPid,
			Sid: mpegts.StreamIdVideoStart,
			Key: i%10 == 0,
			Raw: AvcAccessUnit(i%10 == 0, 300+i*7),
		})
		ats := StartDts + int64(i)*AacFrameDuration
		sb.AddFrame(mpegts.Frame{
			Pts: ats,
			Dts: ats,
			Pid: AacPid,
			Sid: mpegts.StreamIdAudioStart,
			Raw: AdtsFrames(1, 200),
		})
		cts := StartDts + int64(i)*Ac3FrameDuration
		sb.AddFrame(mpegts.Frame{
			Pts: cts,
			Dts: cts,
			Pid: Ac3Pid,
			Sid: mpegts.StreamIdPrivateStream1,
			Raw: Ac3Frame(),
		})
	}
	return sb
}

func Entry(t *testing.T) {
	b := EntryStream().Bytes()

	demuxer := mpegts.NewDemuxer(mpegts.NewBytesReader(b))
	err := demuxer.Run(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, mpegts.TsPacketSize, demuxer.PacketSize())
	assert.Equal(t, StartDts, demuxer.StartTimestamp())

	stats := demuxer.Stats()
	assert.Equal(t, uint64(len(b)/mpegts.TsPacketSize), stats.Packets)
	assert.Equal(t, uint64(0), stats.Discontinuities)
	assert.Equal(t, uint64(1), stats.ProgramChanges)
	assert.Equal(t, uint64(3*EntryFrameNum), stats.ProducedPackets)

	streams := demuxer.Streams()
	assert.Equal(t, 3, len(streams))
	assert.Equal(t, VideoPid, streams[0].Pid)
	assert.Equal(t, base.StreamTypeVideoH264, streams[0].StreamType)
	assert.Equal(t, "h264", streams[0].CodecName)
	assert.Equal(t, AvcWidth, streams[0].Info.Width)
	assert.Equal(t, AvcHeight, streams[0].Info.Height)
	assert.Equal(t, AvcTimeScale, streams[0].Info.FpsRate)
	assert.Equal(t, 2*AvcNumUnitsInTick, streams[0].Info.FpsScale)
	assert.Equal(t, "aac", streams[1].CodecName)
	assert.Equal(t, AacSampleRate, streams[1].Info.SampleRate)
	assert.Equal(t, AacChannels, streams[1].Info.Channels)
	assert.Equal(t, base.StreamTypeAudioAc3, streams[2].StreamType)
	assert.Equal(t, "ac3", streams[2].CodecName)
	assert.Equal(t, "eng", streams[2].Info.Language)
	assert.Equal(t, 48000, streams[2].Info.SampleRate)

	durations := map[uint16]int64{
		VideoPid: AvcFrameDuration,
		AacPid:   AacFrameDuration,
		Ac3Pid:   Ac3FrameDuration,
	}
	ours := make(map[uint16][]int64)
	for _, pkt := range demuxer.Packets() {
		ours[pkt.Pid] = append(ours[pkt.Pid], pkt.Pts)
		assert.Equal(t, durations[pkt.Pid], pkt.Duration)
	}
	for pid := range durations {
		assert.Equal(t, EntryFrameNum, len(ours[pid]))
	}

	theirs := demuxWithAstits(t, b)
	for pid, ptsList := range theirs {
		// go-astits在输入结束时是否吐出最后一个PES与版本有关，只比较它给出的部分
		assert.Equal(t, true, len(ptsList) >= EntryFrameNum-1)
		assert.Equal(t, ours[pid][:len(ptsList)], ptsList)
	}
	assert.Equal(t, 3, len(theirs))
}

// demuxWithAstits 返回每个PID的PTS序列
func demuxWithAstits(t *testing.T, b []byte) map[uint16][]int64 {
	ret := make(map[uint16][]int64)
	dmx := astits.NewDemuxer(context.Background(), bytes.NewReader(b))
	for {
		d, err := dmx.NextData()
		if err != nil {
			if errors.Is(err, astits.ErrNoMorePackets) {
				break
			}
			nazalog.Errorf("astits. err=%+v", err)
			assert.Equal(t, nil, err)
			break
		}
		if d.PES == nil || d.PES.Header.OptionalHeader == nil || d.PES.Header.OptionalHeader.PTS == nil {
			continue
		}
		pid := d.FirstPacket.Header.PID
		ret[pid] = append(ret[pid], d.PES.Header.OptionalHeader.PTS.Base)
	}
	return ret
}
