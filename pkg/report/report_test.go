// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package report_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/q191201771/naza/pkg/assert"

	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/innertest"
	"github.com/q191201771/tsdemux/pkg/mpegts"
	"github.com/q191201771/tsdemux/pkg/report"
)

func videoPacket(dts, duration int64) mpegts.ProducedPacket {
	return mpegts.ProducedPacket{
		Pid:        0x100,
		StreamType: base.StreamTypeVideoH264,
		Pts:        dts,
		Dts:        dts,
		Pcr:        mpegts.TimestampUnset,
		Duration:   duration,
	}
}

// 两个文件，第二个文件与第一个之间丢了一帧，并且内部有一次DTS回退
func twoFiles() (*report.TsParam, *report.TsParam) {
	a := &report.TsParam{
		File:           "a.ts",
		Index:          0,
		StartTimestamp: 0,
		Packets: []mpegts.ProducedPacket{
			videoPacket(0, 3003),
			videoPacket(3003, 3003),
			videoPacket(6006, 3003),
			videoPacket(9009, 3003),
		},
	}
	b := &report.TsParam{
		File:           "b.ts",
		Index:          1,
		StartTimestamp: 15015,
		Packets: []mpegts.ProducedPacket{
			videoPacket(15015, 3003),
			videoPacket(18018, 0),
			videoPacket(16000, 3019),
			videoPacket(19019, 3003),
		},
	}
	return a, b
}

func TestContainerOrder(t *testing.T) {
	c := report.NewContainer()
	var wg sync.WaitGroup
	for i, ts := range []int64{3000, mpegts.TimestampUnset, 1000, 1000} {
		wg.Add(1)
		go func(i int, ts int64) {
			defer wg.Done()
			c.Add(&report.TsParam{Index: i, StartTimestamp: ts})
		}(i, ts)
	}
	wg.Wait()

	var indexes []int
	for _, p := range c.Params() {
		indexes = append(indexes, p.Index)
	}
	assert.Equal(t, []int{2, 3, 0, 1}, indexes)
}

func TestChecker(t *testing.T) {
	a, b := twoFiles()
	params := []*report.TsParam{a, b}
	checker := report.NewChecker(report.Option{}, params)
	assert.Equal(t, int64(3003), checker.Distance(0x100))
	assert.Equal(t, int64(0), checker.Distance(0x101))

	assert.Equal(t, 0, len(checker.CheckFile(a)))

	issues := checker.CheckFile(b)
	assert.Equal(t, 3, len(issues))

	assert.Equal(t, report.IssueFileGap, issues[0].Kind)
	assert.Equal(t, int64(9009), issues[0].Prev)
	assert.Equal(t, int64(6006), issues[0].Value)
	assert.Equal(t, int64(3003), issues[0].Expected)

	assert.Equal(t, report.IssueDtsRollback, issues[1].Kind)
	assert.Equal(t, int64(16000), issues[1].Dts)
	assert.Equal(t, int64(-2018), issues[1].Value)

	assert.Equal(t, report.IssueSuspectDuration, issues[2].Kind)
	assert.Equal(t, int64(3019), issues[2].Value)
	assert.Equal(t, "b.ts", issues[2].File)
	assert.Equal(t, true, strings.Contains(issues[2].String(), "suspect duration"))
}

func TestCheckerBufferOut(t *testing.T) {
	a, _ := twoFiles()
	a.Packets[1].Pts = a.Packets[1].Dts + 100000

	checker := report.NewChecker(report.Option{}, []*report.TsParam{a})
	assert.Equal(t, 0, len(checker.CheckFile(a)))

	checker = report.NewChecker(report.Option{CheckBufferOut: true, BufferOutThreshold: report.DefaultBufferOutThreshold}, []*report.TsParam{a})
	issues := checker.CheckFile(a)
	assert.Equal(t, 1, len(issues))
	assert.Equal(t, report.IssueBufferOut, issues[0].Kind)
	assert.Equal(t, int64(100000), issues[0].Value)
	assert.Equal(t, report.DefaultBufferOutThreshold, issues[0].Expected)
}

func TestLearnDistances(t *testing.T) {
	audio := func(dts, duration int64) mpegts.ProducedPacket {
		return mpegts.ProducedPacket{Pid: 0x101, StreamType: base.StreamTypeAudioAacAdts, Dts: dts, Pts: dts, Duration: duration}
	}
	p := &report.TsParam{
		Packets: []mpegts.ProducedPacket{
			audio(0, 1920), audio(1920, 3840), audio(5760, 3840), audio(9600, 1920),
			// 非音视频流不参与
			{Pid: 0x102, StreamType: base.StreamTypeDvbSubtitle, Dts: 0, Duration: 100},
		},
	}
	distances := report.LearnDistances([]*report.TsParam{p})
	assert.Equal(t, 1, len(distances))
	assert.Equal(t, int64(1920), distances[0x101])
}

func TestPrint(t *testing.T) {
	a, b := twoFiles()

	var out bytes.Buffer
	c := report.NewContainer()
	c.Add(b)
	c.Add(a)
	summary := c.Print(&out)
	assert.Equal(t, 2, summary.Files)
	assert.Equal(t, 8, summary.Packets)
	assert.Equal(t, 3, len(summary.Issues))

	s := out.String()
	// 默认每个文件只打印第一个和最后一个
	assert.Equal(t, 2, strings.Count(s, "[video-0]"))
	assert.Equal(t, 2, strings.Count(s, "[video-1]"))
	assert.Equal(t, true, strings.Index(s, "## a.ts") < strings.Index(s, "## b.ts"))
	assert.Equal(t, false, strings.Contains(s, "pcr="))
	assert.Equal(t, true, strings.Contains(s, "[file gap]"))

	out.Reset()
	c = report.NewContainer(func(option *report.Option) {
		option.PrintPts = report.PrintPtsAll
		option.PrintPcr = true
	})
	c.Add(a)
	c.Print(&out)
	assert.Equal(t, 4, strings.Count(out.String(), "[video-0]"))
	assert.Equal(t, 4, strings.Count(out.String(), "pcr=-1"))

	out.Reset()
	c = report.NewContainer(func(option *report.Option) {
		option.PrintPts = report.PrintPtsAll
		option.PrintMedia = report.PrintMediaAudio
	})
	c.Add(a)
	c.Print(&out)
	assert.Equal(t, 0, strings.Count(out.String(), "[video-0]"))
}

func TestPrintStreams(t *testing.T) {
	d := mpegts.NewDemuxer(mpegts.NewBytesReader(innertest.EntryStream().Bytes()))
	assert.Equal(t, nil, d.Run(context.Background()))

	var out bytes.Buffer
	c := report.NewContainer(func(option *report.Option) {
		option.ShowStreams = true
		option.PrintPts = report.PrintPtsNone
	})
	c.Add(report.NewTsParam("entry.ts", 0, d))
	summary := c.Print(&out)
	assert.Equal(t, 0, len(summary.Issues))
	assert.Equal(t, 3*innertest.EntryFrameNum, summary.Packets)

	s := out.String()
	assert.Equal(t, 3, strings.Count(s, "dump stream infos for channel 1"))
	assert.Equal(t, true, strings.Contains(s, "PID 0100"))
	assert.Equal(t, true, strings.Contains(s, "  Codec name     : h264\n"))
	assert.Equal(t, true, strings.Contains(s, "  Width          : 1280\n"))
	assert.Equal(t, true, strings.Contains(s, "  Sample rate    : 48000\n"))
	assert.Equal(t, true, strings.Contains(s, "  Language       : eng\n"))
	assert.Equal(t, false, strings.Contains(s, "[video-0]"))
}

func TestParseOption(t *testing.T) {
	pm, err := report.ParsePrintMedia("video")
	assert.Equal(t, nil, err)
	assert.Equal(t, report.PrintMediaVideo, pm)
	_, err = report.ParsePrintMedia("subtitle")
	assert.Equal(t, true, errors.Is(err, base.ErrReport))

	pp, err := report.ParsePrintPts("partly")
	assert.Equal(t, nil, err)
	assert.Equal(t, report.PrintPtsPartly, pp)
	assert.Equal(t, "partly", pp.String())
	_, err = report.ParsePrintPts("some")
	assert.IsNotNil(t, err)

	assert.Equal(t, true, report.PrintMediaAll.Match(base.StreamTypeAudioAc3))
	assert.Equal(t, false, report.PrintMediaAll.Match(base.StreamTypeDvbTeletext))
	assert.Equal(t, false, report.PrintMediaVideo.Match(base.StreamTypeAudioAc3))
}
