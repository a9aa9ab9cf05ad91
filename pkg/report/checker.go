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

	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/mpegts"
)

// 检查项：
// - 同一路流DTS回退
// - 帧时长不等于学习到的帧间隔
// - 相邻两个文件衔接处，后一个文件第一帧和前一个文件最后一帧的DTS差值不等于帧间隔
// - PTS与DTS差值过大
//
// 只检查音视频流

type IssueKind uint8

const (
	IssueDtsRollback IssueKind = iota + 1
	IssueSuspectDuration
	IssueFileGap
	IssueBufferOut
)

func (k IssueKind) String() string {
	switch k {
	case IssueDtsRollback:
		return "dts rollback"
	case IssueSuspectDuration:
		return "suspect duration"
	case IssueFileGap:
		return "file gap"
	case IssueBufferOut:
		return "buffer out"
	}
	return fmt.Sprintf("IssueKind(%d)", uint8(k))
}

type Issue struct {
	Kind IssueKind
	File string
	Pid  uint16
	Pts  int64
	Dts  int64

	// Prev 回退、文件衔接时为上一个DTS
	Prev int64

	// Value 回退、文件衔接时为DTS差值，时长异常时为该帧时长，buffer out时为PTS-DTS
	Value int64

	// Expected 帧间隔或者阈值
	Expected int64
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueDtsRollback, IssueFileGap:
		return fmt.Sprintf("[%s] file=%s, pid=%d, dts=%d, prev=%d, distance=%d, expected=%d",
			i.Kind, i.File, i.Pid, i.Dts, i.Prev, i.Value, i.Expected)
	case IssueSuspectDuration:
		return fmt.Sprintf("[%s] file=%s, pid=%d, dts=%d, duration=%d, expected=%d",
			i.Kind, i.File, i.Pid, i.Dts, i.Value, i.Expected)
	case IssueBufferOut:
		return fmt.Sprintf("[%s] file=%s, pid=%d, pts=%d, dts=%d, distance=%d, threshold=%d",
			i.Kind, i.File, i.Pid, i.Pts, i.Dts, i.Value, i.Expected)
	}
	return fmt.Sprintf("[%s] file=%s, pid=%d", i.Kind, i.File, i.Pid)
}

// Checker 按文件顺序做连续性检查，跨文件的状态保存在内部
type Checker struct {
	option    Option
	distances map[uint16]int64 // pid -> 学习到的帧间隔
	lastDts   map[uint16]int64 // pid -> 之前文件的最后一个DTS
}

// NewChecker 先从所有文件中学习每路流的帧间隔
func NewChecker(option Option, params []*TsParam) *Checker {
	return &Checker{
		option:    option,
		distances: LearnDistances(params),
		lastDts:   make(map[uint16]int64),
	}
}

// Distance 返回0表示没有学习到
func (c *Checker) Distance(pid uint16) int64 {
	return c.distances[pid]
}

// CheckFile 需要按文件顺序调用
func (c *Checker) CheckFile(param *TsParam) []Issue {
	var issues []Issue
	prevDts := make(map[uint16]int64)
	lastIndex := lastPacketIndex(param.Packets)

	for i, pkt := range param.Packets {
		if !isMedia(pkt.StreamType) || pkt.Dts == mpegts.TimestampUnset {
			continue
		}
		expected := c.distances[pkt.Pid]

		if c.option.CheckBufferOut && pkt.Pts != mpegts.TimestampUnset {
			if d := mpegts.DtsDistance(pkt.Dts, pkt.Pts); d > c.option.BufferOutThreshold {
				issues = append(issues, Issue{
					Kind: IssueBufferOut, File: param.File, Pid: pkt.Pid, Pts: pkt.Pts, Dts: pkt.Dts,
					Value: d, Expected: c.option.BufferOutThreshold,
				})
			}
		}

		if prev, ok := prevDts[pkt.Pid]; ok {
			if d := mpegts.DtsDistance(prev, pkt.Dts); d < 0 {
				issues = append(issues, Issue{
					Kind: IssueDtsRollback, File: param.File, Pid: pkt.Pid, Pts: pkt.Pts, Dts: pkt.Dts,
					Prev: prev, Value: d, Expected: expected,
				})
			}
		} else if prev, ok := c.lastDts[pkt.Pid]; ok && expected > 0 {
			if d := mpegts.DtsDistance(prev, pkt.Dts); d != expected {
				issues = append(issues, Issue{
					Kind: IssueFileGap, File: param.File, Pid: pkt.Pid, Pts: pkt.Pts, Dts: pkt.Dts,
					Prev: prev, Value: d, Expected: expected,
				})
			}
		}
		prevDts[pkt.Pid] = pkt.Dts

		// 每个文件中每路流的最后一帧，时长来自码流，不参与检查
		if i != lastIndex[pkt.Pid] && suspectDuration(pkt, expected) {
			issues = append(issues, Issue{
				Kind: IssueSuspectDuration, File: param.File, Pid: pkt.Pid, Pts: pkt.Pts, Dts: pkt.Dts,
				Value: pkt.Duration, Expected: expected,
			})
		}
	}

	for pid, dts := range prevDts {
		c.lastDts[pid] = dts
	}
	return issues
}

// LearnDistances 每路音视频流出现次数最多的帧时长，次数相同时取较小的值
func LearnDistances(params []*TsParam) map[uint16]int64 {
	counts := make(map[uint16]map[int64]int)
	for _, param := range params {
		for _, pkt := range param.Packets {
			if !isMedia(pkt.StreamType) || pkt.Duration <= 0 {
				continue
			}
			m, ok := counts[pkt.Pid]
			if !ok {
				m = make(map[int64]int)
				counts[pkt.Pid] = m
			}
			m[pkt.Duration]++
		}
	}

	ret := make(map[uint16]int64)
	for pid, m := range counts {
		var best int64
		bestCount := 0
		for d, n := range m {
			if n > bestCount || (n == bestCount && d < best) {
				best = d
				bestCount = n
			}
		}
		ret[pid] = best
	}
	return ret
}

// suspectDuration 时长与帧间隔不一致，并且也不是码流中计算出的时长
func suspectDuration(pkt mpegts.ProducedPacket, expected int64) bool {
	if expected <= 0 || pkt.Duration <= 0 || pkt.Duration == expected {
		return false
	}
	return pkt.EsDuration == 0 || pkt.Duration != pkt.EsDuration
}

func lastPacketIndex(packets []mpegts.ProducedPacket) map[uint16]int {
	ret := make(map[uint16]int)
	for i, pkt := range packets {
		ret[pkt.Pid] = i
	}
	return ret
}

func isMedia(st base.StreamType) bool {
	return st.IsVideo() || st.IsAudio()
}
