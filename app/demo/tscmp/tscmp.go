// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/q191201771/naza/pkg/nazalog"

	"github.com/q191201771/tsdemux/pkg/mpegts"
)

// 小工具，分别解析两个TS文件，按PID比较输出的时间戳序列

func demuxFile(filename string) map[uint16][]mpegts.ProducedPacket {
	content, err := os.ReadFile(filename)
	nazalog.Assert(nil, err)

	d := mpegts.NewDemuxer(mpegts.NewBytesReader(content))
	err = d.Run(context.Background())
	nazalog.Assert(nil, err)
	nazalog.Infof("demux. file=%s, packet size=%d, stats=%+v", filename, d.PacketSize(), d.Stats())

	ret := make(map[uint16][]mpegts.ProducedPacket)
	for _, pkt := range d.Packets() {
		ret[pkt.Pid] = append(ret[pkt.Pid], pkt)
	}
	return ret
}

// compare 返回不一致的个数，只打印每个PID的前`maxDiff`个
func compare(pid uint16, pkts1, pkts2 []mpegts.ProducedPacket, maxDiff int) int {
	n := 0
	if len(pkts1) != len(pkts2) {
		nazalog.Warnf("pid=%d, num of packets not match. %d %d", pid, len(pkts1), len(pkts2))
		n++
	}

	m := len(pkts1)
	if m > len(pkts2) {
		m = len(pkts2)
	}
	for i := 0; i < m; i++ {
		a, b := pkts1[i], pkts2[i]
		if a.Pts == b.Pts && a.Dts == b.Dts && a.Duration == b.Duration {
			continue
		}
		if n < maxDiff {
			nazalog.Warnf("pid=%d, index=%d\n  %s\n  %s", pid, i, a.DebugString(), b.DebugString())
		}
		n++
	}
	return n
}

func main() {
	_ = nazalog.Init(func(option *nazalog.Option) {
		option.AssertBehavior = nazalog.AssertFatal
	})
	defer nazalog.Sync()

	filename1, filename2, maxDiff := parseFlag()

	m1 := demuxFile(filename1)
	m2 := demuxFile(filename2)

	pids := make(map[uint16]struct{})
	for pid := range m1 {
		pids[pid] = struct{}{}
	}
	for pid := range m2 {
		pids[pid] = struct{}{}
	}
	sorted := make([]uint16, 0, len(pids))
	for pid := range pids {
		sorted = append(sorted, pid)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	total := 0
	for _, pid := range sorted {
		n := compare(pid, m1[pid], m2[pid], maxDiff)
		nazalog.Infof("pid=%d, packets=%d %d, diff=%d", pid, len(m1[pid]), len(m2[pid]), n)
		total += n
	}
	if total != 0 {
		nazalog.Warnf("not match. diff=%d", total)
		os.Exit(1)
	}
	nazalog.Info("match.")
}

func parseFlag() (string, string, int) {
	f1 := flag.String("a", "", "specify first ts file")
	f2 := flag.String("b", "", "specify second ts file")
	n := flag.Int("n", 16, "max diff printed per pid")
	flag.Parse()
	if *f1 == "" || *f2 == "" {
		flag.Usage()
		_, _ = fmt.Fprintf(os.Stderr, `
Example:
  %s -a lal-4.ts -b nrm-4.ts
`, os.Args[0])
		os.Exit(1)
	}
	return *f1, *f2, *n
}
