// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"fmt"

	"github.com/q191201771/tsdemux/pkg/base"
)

// ProducedPacket 一个带时间戳的PES unit
//
// Duration在同一个PID的下一个unit产生时回填（两者DTS的差值），最后一个unit在Flush时使用sink计算的时长
//
type ProducedPacket struct {
	Pid        uint16
	StreamType base.StreamType
	Pts        int64
	Dts        int64
	Pcr        int64 // 27MHz，TimestampUnset 表示该节目还没有出现过PCR
	Duration   int64 // 90kHz
	EsDuration int64 // sink解析码流得到的时长，90kHz，无法计算时为0
}

func (pkt ProducedPacket) DebugString() string {
	return fmt.Sprintf("[%d] type=%s, pts=%d, dts=%d, pcr=%d, duration=%d, es_duration=%d",
		pkt.Pid, pkt.StreamType.String(), pkt.Pts, pkt.Dts, pkt.Pcr, pkt.Duration, pkt.EsDuration)
}

// Result 处理一个TS包之后的结果。出错的情况通过error返回
type Result uint8

const (
	ResultContinue Result = iota
	ResultProgramChange
	ResultDiscontinuity
)

func (r Result) String() string {
	switch r {
	case ResultContinue:
		return "Continue"
	case ResultProgramChange:
		return "ProgramChange"
	case ResultDiscontinuity:
		return "Discontinuity"
	}
	return fmt.Sprintf("Result(%d)", uint8(r))
}

// Stats 解析过程中的计数
type Stats struct {
	Packets           uint64
	NullPackets       uint64
	TransportErrors   uint64
	Discontinuities   uint64 // 检测到的continuity counter不连续的次数
	MalformedPackets  uint64
	MalformedSections uint64
	MalformedPes      uint64
	ProgramChanges    uint64
	ProducedPackets   uint64
}

// StreamDescription 一路已注册的es
type StreamDescription struct {
	Pid           uint16
	Channel       uint16 // program_number
	PmtStreamType uint8  // PMT中原始的stream_type
	StreamType    base.StreamType
	CodecName     string
	Info          base.StreamInfo
}

// DtsDistance 计算`to - from`，考虑33位回绕，返回值范围为 [-2^32, 2^32)
func DtsDistance(from, to int64) int64 {
	d := (to - from) & PtsMask
	if d >= 1<<32 {
		d -= 1 << 33
	}
	return d
}
