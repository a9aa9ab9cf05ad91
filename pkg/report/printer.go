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

	"github.com/q191201771/tsdemux/pkg/mpegts"
)

// Printer 文本格式输出，每一行一条记录
type Printer struct {
	w      io.Writer
	option Option
}

func NewPrinter(w io.Writer, option Option) *Printer {
	return &Printer{
		w:      w,
		option: option,
	}
}

func (p *Printer) PrintFileHeader(param *TsParam) {
	p.printf("## %s, index=%d, start=%d, packets=%d, produced=%d, discontinuities=%d\n",
		param.File, param.Index, param.StartTimestamp, param.Stats.Packets, len(param.Packets), param.Stats.Discontinuities)
}

// PrintStreamInfo 一路流的编码信息
func (p *Printer) PrintStreamInfo(sd mpegts.StreamDescription) {
	info := sd.Info
	interlaced := "false"
	if info.Interlaced {
		interlaced = "true"
	}
	p.printf("dump stream infos for channel %d PID %.4x\n", sd.Channel, sd.Pid)
	p.printf("  Codec name     : %s\n", sd.CodecName)
	p.printf("  Language       : %s\n", info.Language)
	p.printf("  Identifier     : %.8x\n", info.Identifier())
	p.printf("  FPS scale      : %d\n", info.FpsScale)
	p.printf("  FPS rate       : %d\n", info.FpsRate)
	p.printf("  Interlaced     : %s\n", interlaced)
	p.printf("  Height         : %d\n", info.Height)
	p.printf("  Width          : %d\n", info.Width)
	p.printf("  Aspect         : %3.3f\n", info.Aspect)
	p.printf("  Channels       : %d\n", info.Channels)
	p.printf("  Sample rate    : %d\n", info.SampleRate)
	p.printf("  Block align    : %d\n", info.BlockAlign)
	p.printf("  Bit rate       : %d\n", info.BitRate)
	p.printf("  Bit per sample : %d\n", info.BitsPerSample)
	p.printf("\n")
}

// PrintPackets 按 Option.PrintMedia 和 Option.PrintPts 打印时间戳
func (p *Printer) PrintPackets(param *TsParam) {
	if p.option.PrintPts == PrintPtsNone {
		return
	}

	var selected map[int]bool
	if p.option.PrintPts == PrintPtsPartly {
		selected = make(map[int]bool)
		first := make(map[uint16]bool)
		for i, pkt := range param.Packets {
			if !first[pkt.Pid] {
				first[pkt.Pid] = true
				selected[i] = true
			}
		}
		for _, i := range lastPacketIndex(param.Packets) {
			selected[i] = true
		}
	}

	for i, pkt := range param.Packets {
		if !p.option.PrintMedia.Match(pkt.StreamType) {
			continue
		}
		if selected != nil && !selected[i] {
			continue
		}
		p.PrintPacket(param.Index, pkt)
	}
}

func (p *Printer) PrintPacket(index int, pkt mpegts.ProducedPacket) {
	kind := "other"
	switch {
	case pkt.StreamType.IsVideo():
		kind = "video"
	case pkt.StreamType.IsAudio():
		kind = "audio"
	}
	if p.option.PrintPcr {
		p.printf("[%s-%d] pid=%d, pts=%d, dts=%d, duration=%d, pcr=%d\n",
			kind, index, pkt.Pid, pkt.Pts, pkt.Dts, pkt.Duration, pkt.Pcr)
		return
	}
	p.printf("[%s-%d] pid=%d, pts=%d, dts=%d, duration=%d\n", kind, index, pkt.Pid, pkt.Pts, pkt.Dts, pkt.Duration)
}

func (p *Printer) PrintIssue(issue Issue) {
	p.printf("%s\n", issue.String())
}

func (p *Printer) PrintSummary(summary Summary) {
	counts := make(map[IssueKind]int)
	for _, issue := range summary.Issues {
		counts[issue.Kind]++
	}
	p.printf("## summary. files=%d, packets=%d, issues=%d (rollback=%d, suspect=%d, gap=%d, buffer out=%d)\n",
		summary.Files, summary.Packets, len(summary.Issues),
		counts[IssueDtsRollback], counts[IssueSuspectDuration], counts[IssueFileGap], counts[IssueBufferOut])
}

func (p *Printer) printf(format string, v ...interface{}) {
	_, _ = fmt.Fprintf(p.w, format, v...)
}
