// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package report

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/mpegts"
)

// PrintMedia 打印哪一类流的时间戳
type PrintMedia uint8

const (
	PrintMediaAll PrintMedia = iota
	PrintMediaVideo
	PrintMediaAudio
)

func (pm PrintMedia) String() string {
	switch pm {
	case PrintMediaVideo:
		return "video"
	case PrintMediaAudio:
		return "audio"
	}
	return "all"
}

func ParsePrintMedia(s string) (PrintMedia, error) {
	switch s {
	case "all", "":
		return PrintMediaAll, nil
	case "video":
		return PrintMediaVideo, nil
	case "audio":
		return PrintMediaAudio, nil
	}
	return PrintMediaAll, fmt.Errorf("%w. invalid print media: %s", base.ErrReport, s)
}

// Match 流类型是否属于要打印的范围
func (pm PrintMedia) Match(st base.StreamType) bool {
	switch pm {
	case PrintMediaVideo:
		return st.IsVideo()
	case PrintMediaAudio:
		return st.IsAudio()
	}
	return st.IsVideo() || st.IsAudio()
}

// PrintPts 时间戳打印的详细程度
type PrintPts uint8

const (
	PrintPtsNone PrintPts = iota
	PrintPtsAll
	PrintPtsPartly // 每个文件中每路流只打印第一个和最后一个
)

func (pp PrintPts) String() string {
	switch pp {
	case PrintPtsAll:
		return "all"
	case PrintPtsPartly:
		return "partly"
	}
	return "none"
}

func ParsePrintPts(s string) (PrintPts, error) {
	switch s {
	case "none", "":
		return PrintPtsNone, nil
	case "all":
		return PrintPtsAll, nil
	case "partly":
		return PrintPtsPartly, nil
	}
	return PrintPtsNone, fmt.Errorf("%w. invalid print pts: %s", base.ErrReport, s)
}

type Option struct {
	PrintMedia PrintMedia
	PrintPts   PrintPts
	PrintPcr   bool

	// ShowStreams 每个文件打印一次各路流的编码信息
	ShowStreams bool

	// CheckBufferOut 检查PTS与DTS的差值是否超过 BufferOutThreshold
	CheckBufferOut     bool
	BufferOutThreshold int64
}

var defaultOption = Option{
	PrintMedia:         PrintMediaAll,
	PrintPts:           PrintPtsPartly,
	PrintPcr:           false,
	ShowStreams:        false,
	CheckBufferOut:     false,
	BufferOutThreshold: DefaultBufferOutThreshold,
}

type ModOption func(option *Option)

// TsParam 一个文件的解析结果
type TsParam struct {
	File           string
	Index          int // 文件在输入列表中的顺序
	StartTimestamp int64
	Packets        []mpegts.ProducedPacket
	Streams        []mpegts.StreamDescription
	Stats          mpegts.Stats
}

// NewTsParam 从解析结束的Demuxer中取结果
func NewTsParam(file string, index int, d *mpegts.Demuxer) *TsParam {
	return &TsParam{
		File:           file,
		Index:          index,
		StartTimestamp: d.StartTimestamp(),
		Packets:        d.Packets(),
		Streams:        d.Streams(),
		Stats:          d.Stats(),
	}
}

// Summary Print 的结果汇总
type Summary struct {
	Files   int
	Packets int
	Issues  []Issue
}

// Container 汇总多个文件的解析结果，按起始时间戳排序后统一打印和检查
//
// Add 可以在多个goroutine中并发调用
//
type Container struct {
	option Option

	mu     sync.Mutex
	params []*TsParam
}

func NewContainer(modOptions ...ModOption) *Container {
	option := defaultOption
	for _, fn := range modOptions {
		fn(&option)
	}
	if option.BufferOutThreshold <= 0 {
		option.BufferOutThreshold = DefaultBufferOutThreshold
	}
	return &Container{
		option: option,
	}
}

func (c *Container) Add(param *TsParam) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = append(c.params, param)
}

// Params 按起始时间戳排序，没有时间戳的文件排在最后，相同时按Index排序
func (c *Container) Params() []*TsParam {
	c.mu.Lock()
	defer c.mu.Unlock()

	ret := make([]*TsParam, len(c.params))
	copy(ret, c.params)
	sort.SliceStable(ret, func(i, j int) bool {
		a, b := ret[i], ret[j]
		if (a.StartTimestamp == mpegts.TimestampUnset) != (b.StartTimestamp == mpegts.TimestampUnset) {
			return b.StartTimestamp == mpegts.TimestampUnset
		}
		if a.StartTimestamp != b.StartTimestamp {
			return a.StartTimestamp < b.StartTimestamp
		}
		return a.Index < b.Index
	})
	return ret
}

// Print 按顺序打印所有文件，并做连续性检查
func (c *Container) Print(w io.Writer) Summary {
	params := c.Params()
	checker := NewChecker(c.option, params)
	p := NewPrinter(w, c.option)

	var summary Summary
	for _, param := range params {
		p.PrintFileHeader(param)
		if c.option.ShowStreams {
			for _, sd := range param.Streams {
				p.PrintStreamInfo(sd)
			}
		}
		p.PrintPackets(param)

		issues := checker.CheckFile(param)
		for _, issue := range issues {
			p.PrintIssue(issue)
			Log.Warnf("%s", issue.String())
		}

		summary.Files++
		summary.Packets += len(param.Packets)
		summary.Issues = append(summary.Issues, issues...)
	}
	p.PrintSummary(summary)
	return summary
}
