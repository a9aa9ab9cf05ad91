// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/q191201771/naza/pkg/nazalog"

	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/mpegts"
)

// 学习如何解析TS文件，逐包打印header、PAT、PMT、PES header中的字段
//
// 只用到mpegts包中的底层解析函数，不经过Context

type learner struct {
	pat        mpegts.Pat
	sections   map[uint16]*mpegts.SectionAssembler // PAT以及PMT
	pid2stream map[uint16]*stream
	maxPackets int
	index      int
}

type stream struct {
	streamType uint8
	pes        mpegts.PesAssembler
	started    bool
}

func newLearner(maxPackets int) *learner {
	return &learner{
		sections: map[uint16]*mpegts.SectionAssembler{
			mpegts.PidPat: mpegts.NewSectionAssembler(),
		},
		pid2stream: make(map[uint16]*stream),
		maxPackets: maxPackets,
	}
}

func (l *learner) handlePacket(b []byte) {
	l.index++
	pkt, err := mpegts.ParseTsPacket(b)
	if errors.Is(err, base.ErrNullPacket) {
		return
	}
	if err != nil {
		nazalog.Warnf("[%d] parse packet failed. err=%+v", l.index, err)
		return
	}
	h := pkt.Header
	if l.maxPackets == 0 || l.index <= l.maxPackets {
		nazalog.Debugf("[%d] header=%+v", l.index, h)
		if h.HasAdaptation() {
			nazalog.Debugf("[%d] adaptation=%+v", l.index, pkt.Adaptation)
		}
	}
	if !h.HasPayload() {
		return
	}

	if sa, ok := l.sections[h.Pid]; ok {
		section, err := sa.Push(h.Pid, pkt.Payload, h.IsUnitStart())
		if err != nil {
			nazalog.Warnf("[%d] push section failed. err=%+v", l.index, err)
			return
		}
		if section == nil {
			return
		}
		if h.Pid == mpegts.PidPat {
			l.handlePat(section)
		} else {
			l.handlePmt(h.Pid, section)
		}
		return
	}

	s, ok := l.pid2stream[h.Pid]
	if !ok {
		nazalog.Warnf("[%d] unknown pid. pid=%d", l.index, h.Pid)
		return
	}

	// 判断是否有PES
	if h.IsUnitStart() {
		s.pes.Start()
		s.started = true
	}
	if !s.started || s.pes.Done() {
		return
	}
	if _, done, err := s.pes.Push(pkt.Payload); err != nil {
		nazalog.Warnf("[%d] pes header failed. pid=%d, err=%+v", l.index, h.Pid, err)
		s.started = false
	} else if done {
		nazalog.Debugf("[%d] pid=%d, stream type=%d, pes=%+v", l.index, h.Pid, s.streamType, s.pes.Header())
	}
}

func (l *learner) handlePat(section []byte) {
	pat, err := mpegts.ParsePat(section)
	if err != nil {
		nazalog.Warnf("[%d] parse pat failed. err=%+v", l.index, err)
		return
	}
	nazalog.Infof("[%d] pat=%+v", l.index, pat)
	l.pat = pat
	for _, ppe := range pat.ProgramElements {
		if ppe.ProgramNumber == 0 {
			continue
		}
		if _, ok := l.sections[ppe.ProgramMapPid]; !ok {
			l.sections[ppe.ProgramMapPid] = mpegts.NewSectionAssembler()
		}
	}
}

func (l *learner) handlePmt(pid uint16, section []byte) {
	pmt, err := mpegts.ParsePmt(pid, section)
	if err != nil {
		nazalog.Warnf("[%d] parse pmt failed. err=%+v", l.index, err)
		return
	}
	nazalog.Infof("[%d] pmt=%+v", l.index, pmt)
	for _, ele := range pmt.ProgramElements {
		o := mpegts.ApplyDescriptors(ele.Descriptors)
		nazalog.Infof("[%d] es. pid=%d, stream type=%d(%s), descriptors=%+v",
			l.index, ele.Pid, ele.StreamType, mpegts.MapStreamType(ele.StreamType).String(), o)
		if _, ok := l.pid2stream[ele.Pid]; !ok {
			l.pid2stream[ele.Pid] = &stream{streamType: ele.StreamType}
		}
	}
}

func main() {
	_ = nazalog.Init(func(option *nazalog.Option) {
		option.AssertBehavior = nazalog.AssertFatal
	})
	defer nazalog.Sync()

	filename, maxPackets := parseFlag()

	fp, err := os.Open(filename)
	nazalog.Assert(nil, err)
	defer fp.Close()

	s := mpegts.NewSynchronizer(mpegts.NewBufferedReader(fp, base.TsAvBufferSize))
	packetSize, err := s.Configure()
	nazalog.Assert(nil, err)
	nazalog.Infof("packet size=%d", packetSize)

	l := newLearner(maxPackets)
	for {
		b, err := s.Resync()
		if err != nil {
			nazalog.Infof("stop. pos=%d, err=%+v", s.Position(), err)
			break
		}
		l.handlePacket(b)
		s.GoNext()
	}
	nazalog.Infof("packets=%d, streams=%d", l.index, len(l.pid2stream))
}

func parseFlag() (string, int) {
	filename := flag.String("i", "", "specify ts file")
	n := flag.Int("n", 0, "only dump header of the first n packets, 0 means all")
	flag.Parse()
	if *filename == "" {
		flag.Usage()
		_, _ = fmt.Fprintf(os.Stderr, `
Example:
  %s -i test.ts -n 100
`, os.Args[0])
		os.Exit(1)
	}
	return *filename, *n
}
