// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"errors"
	"sort"

	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/es"
)

// SinkFactory 为PMT中的一路es创建sink。返回nil时使用透传sink
type SinkFactory func(st base.StreamType, pid uint16, info base.StreamInfo) base.ElementaryStream

// DemuxerObserver 的回调都在调用 Context.FeedPacket 的goroutine中同步执行
type DemuxerObserver interface {
	// OnProgramChange PMT生效后回调，`streams`为当前所有已注册的es
	OnProgramChange(streams []StreamDescription)

	// OnDiscontinuity 检测到continuity counter不连续
	OnDiscontinuity(pid uint16)

	// OnPacket 产生一个ProducedPacket时回调。此时Duration还没有回填
	OnPacket(pkt ProducedPacket)
}

type DemuxerOption struct {
	// Channel 只解析该program_number的节目，0表示全部
	Channel uint16

	// Streaming 新注册的es是否把payload喂给sink
	Streaming bool

	// CheckCrc 是否校验PSI section的CRC_32，校验失败的section按MalformedSection处理
	CheckCrc bool

	SinkFactory SinkFactory
	Observer    DemuxerObserver
}

var defaultDemuxerOption = DemuxerOption{
	Channel:     0,
	Streaming:   true,
	CheckCrc:    false,
	SinkFactory: es.New,
}

type ModDemuxerOption func(option *DemuxerOption)

// Context TS层的解析状态：PID表、PSI/PES重组、输出序列
//
// 非并发安全，所有方法需要在同一个goroutine中调用
//
type Context struct {
	option DemuxerOption

	pids       map[uint16]*PidState
	pcrPids    map[uint16]uint16 // program_number -> PCR_PID
	programPcr map[uint16]int64  // program_number -> 最近一次的PCR

	packets        []ProducedPacket
	startTimestamp int64
	startIsVideo   bool

	stats   Stats
	logDump base.LogDump
}

func NewContext(modOptions ...ModDemuxerOption) *Context {
	option := defaultDemuxerOption
	for _, fn := range modOptions {
		fn(&option)
	}

	return &Context{
		option:         option,
		pids:           make(map[uint16]*PidState),
		pcrPids:        make(map[uint16]uint16),
		programPcr:     make(map[uint16]int64),
		startTimestamp: TimestampUnset,
		logDump:        base.NewLogDump(Log, 16, 188),
	}
}

// FeedPacket 解析并分发一个TS包
//
// @param b: 从同步字节开始，至少188字节
//
// @return err: 包或者section有问题时不为nil，此时result为ResultContinue，调用方继续处理下一个包即可
//
func (c *Context) FeedPacket(b []byte) (Result, error) {
	c.stats.Packets++

	pkt, err := ParseTsPacket(b)
	if err != nil {
		switch {
		case errors.Is(err, base.ErrNullPacket):
			c.stats.NullPackets++
			return ResultContinue, nil
		case errors.Is(err, base.ErrTransportError):
			c.stats.TransportErrors++
		default:
			c.stats.MalformedPackets++
			c.logDump.OutHex(b, "drop malformed packet. err=%+v", err)
		}
		return ResultContinue, err
	}
	return c.Dispatch(&pkt)
}

// Dispatch 按PID分发一个已经解析的TS包
func (c *Context) Dispatch(pkt *TsPacket) (Result, error) {
	pid := pkt.Header.Pid
	unitStart := pkt.Header.IsUnitStart()

	c.trackPcr(pkt)

	ps, ok := c.pids[pid]
	if !ok {
		if pid != PidPat || !unitStart {
			return ResultContinue, nil
		}
		ps = newPsiState(PidPat, 0)
		c.pids[PidPat] = ps
	}

	cc := pkt.Header.Cc
	if ps.WaitUnitStart && !unitStart {
		ps.Cc = cc
		return ResultDiscontinuity, nil
	}

	if ps.Cc != ccUnset {
		expected := ps.Cc
		if pkt.Header.HasPayload() {
			expected = (ps.Cc + 1) & 0x0F
		}
		if cc != expected && pkt.Adaptation.Discontinuity == 0 {
			c.stats.Discontinuities++
			Log.Debugf("[%d] continuity counter mismatch. expected=%d, actual=%d, unit start=%t",
				pid, expected, cc, unitStart)
			if c.option.Observer != nil {
				c.option.Observer.OnDiscontinuity(pid)
			}
			if !unitStart {
				ps.Reset()
				return ResultDiscontinuity, nil
			}
		}
	}
	ps.Cc = cc
	ps.WaitUnitStart = false

	if pkt.Payload == nil {
		return ResultContinue, nil
	}

	switch ps.Kind {
	case PacketKindPsi:
		return c.handlePsi(ps, pkt)
	case PacketKindPes:
		return c.handlePes(ps, pkt)
	}
	return ResultContinue, nil
}

// Packets 输出序列
func (c *Context) Packets() []ProducedPacket {
	return c.packets
}

// Streams 当前注册的所有es，按PID排序
func (c *Context) Streams() []StreamDescription {
	var ret []StreamDescription
	for _, ps := range c.pids {
		if ps.Kind != PacketKindPes {
			continue
		}
		sd := StreamDescription{
			Pid:           ps.Pid,
			Channel:       ps.Channel,
			PmtStreamType: ps.PmtStreamType,
			StreamType:    ps.StreamType,
		}
		if ps.sink != nil {
			sd.CodecName = ps.sink.CodecName()
			sd.Info = ps.sink.StreamInfo()
		}
		ret = append(ret, sd)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Pid < ret[j].Pid
	})
	return ret
}

// PidState 返回nil表示该PID没有注册
func (c *Context) PidState(pid uint16) *PidState {
	return c.pids[pid]
}

// StartStreaming 开始把该PID的payload喂给sink，返回false表示不是已注册的es
func (c *Context) StartStreaming(pid uint16) bool {
	ps, ok := c.pids[pid]
	if !ok || ps.Kind != PacketKindPes {
		return false
	}
	ps.Streaming = true
	return true
}

func (c *Context) StopStreaming(pid uint16) bool {
	ps, ok := c.pids[pid]
	if !ok || ps.Kind != PacketKindPes {
		return false
	}
	ps.Streaming = false
	ps.unitOpen = false
	ps.boundary = false
	ps.sink.Reset()
	return true
}

// StartTimestamp 第一个视频DTS，没有视频时为第一个任意流的DTS
func (c *Context) StartTimestamp() int64 {
	return c.startTimestamp
}

func (c *Context) Stats() Stats {
	return c.stats
}

// Flush 输入结束时调用，结束所有未完成的unit，并把sink计算的时长填到每个PID最后一个packet上
func (c *Context) Flush() {
	pids := make([]uint16, 0, len(c.pids))
	for pid, ps := range c.pids {
		if ps.Kind == PacketKindPes {
			pids = append(pids, pid)
		}
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })

	for _, pid := range pids {
		ps := c.pids[pid]
		c.closeUnit(ps)
		if ps.lastIndex >= 0 {
			last := &c.packets[ps.lastIndex]
			if last.Duration == 0 {
				last.Duration = last.EsDuration
			}
		}
	}
}

// ----- private -------------------------------------------------------------------------------------------------------

func (c *Context) trackPcr(pkt *TsPacket) {
	pcr := pkt.Adaptation.Pcr
	if pcr == TimestampUnset {
		return
	}
	pid := pkt.Header.Pid
	if ps, ok := c.pids[pid]; ok {
		ps.Pcr = pcr
	}
	for channel, pcrPid := range c.pcrPids {
		if pcrPid == pid {
			c.programPcr[channel] = pcr
		}
	}
}

func (c *Context) handlePsi(ps *PidState, pkt *TsPacket) (Result, error) {
	section, err := ps.section.Push(ps.Pid, pkt.Payload, pkt.Header.IsUnitStart())
	if err != nil {
		c.stats.MalformedSections++
		return ResultContinue, err
	}
	if section == nil {
		return ResultContinue, nil
	}

	if c.option.CheckCrc && !CheckSectionCrc32(section) {
		c.stats.MalformedSections++
		return ResultContinue, base.NewErrMalformedSection(ps.Pid, "crc32 mismatch")
	}

	switch section[0] {
	case TsPsiIdPas:
		if ps.Pid != PidPat {
			break
		}
		return c.handlePat(ps, section)
	case TsPsiIdPms:
		if ps.Pid == PidPat {
			break
		}
		return c.handlePmt(ps, section)
	}
	return ResultContinue, nil
}

func (c *Context) handlePat(ps *PidState, section []byte) (Result, error) {
	pat, err := ParsePat(section)
	if err != nil {
		c.stats.MalformedSections++
		return ResultContinue, err
	}
	if pat.CurrentNext == 0 {
		return ResultContinue, nil
	}
	tv := TableVersion{TableId: TsPsiIdPas, Id: pat.TransportStreamId, Version: pat.Version}
	if ps.hasTable && ps.tableVersion == tv {
		return ResultContinue, nil
	}
	ps.tableVersion = tv
	ps.hasTable = true
	Log.Debugf("pat. tsid=%d, version=%d, programs=%d", pat.TransportStreamId, pat.Version, len(pat.ProgramElements))

	c.clearPmt()

	for _, ppe := range pat.ProgramElements {
		if ppe.ProgramNumber == 0 {
			continue
		}
		if c.option.Channel != 0 && ppe.ProgramNumber != c.option.Channel {
			continue
		}
		if ppe.ProgramMapPid == PidPat || ppe.ProgramMapPid == PidNull {
			Log.Warnf("invalid pmt pid in pat. program=%d, pid=%d", ppe.ProgramNumber, ppe.ProgramMapPid)
			continue
		}
		if _, exist := c.pids[ppe.ProgramMapPid]; exist {
			Log.Warnf("pmt pid already registered. program=%d, pid=%d", ppe.ProgramNumber, ppe.ProgramMapPid)
			continue
		}
		c.pids[ppe.ProgramMapPid] = newPsiState(ppe.ProgramMapPid, ppe.ProgramNumber)
	}
	return ResultContinue, nil
}

func (c *Context) handlePmt(ps *PidState, section []byte) (Result, error) {
	pmt, err := ParsePmt(ps.Pid, section)
	if err != nil {
		c.stats.MalformedSections++
		return ResultContinue, err
	}
	if pmt.CurrentNext == 0 {
		return ResultContinue, nil
	}
	tv := TableVersion{TableId: TsPsiIdPms, Id: pmt.ProgramNumber, Version: pmt.Version}
	if ps.hasTable && ps.tableVersion == tv {
		return ResultContinue, nil
	}
	ps.tableVersion = tv
	ps.hasTable = true

	channel := ps.Channel
	c.clearPes(channel)
	c.pcrPids[channel] = pmt.PcrPid

	for _, ppe := range pmt.ProgramElements {
		if ppe.Pid == PidPat || ppe.Pid == PidNull || ppe.Pid == ps.Pid {
			Log.Warnf("[%d] invalid elementary pid in pmt. pid=%d", ps.Pid, ppe.Pid)
			continue
		}
		if _, exist := c.pids[ppe.Pid]; exist {
			Log.Warnf("[%d] elementary pid already registered. pid=%d", ps.Pid, ppe.Pid)
			continue
		}

		st := MapStreamType(ppe.StreamType)
		o := ApplyDescriptors(ppe.Descriptors)
		if o.StreamType != base.StreamTypeUnknown {
			st = o.StreamType
		}
		info := base.StreamInfo{
			Language:      o.Language,
			CompositionId: o.CompositionId,
			AncillaryId:   o.AncillaryId,
		}

		var sink base.ElementaryStream
		if c.option.SinkFactory != nil {
			sink = c.option.SinkFactory(st, ppe.Pid, info)
		}
		if sink == nil {
			sink = es.NewRaw(st, info)
		}

		state := newPesState(ppe.Pid, channel, ppe.StreamType, st, sink)
		state.Streaming = c.option.Streaming
		c.pids[ppe.Pid] = state
		Log.Debugf("[%d] register es. program=%d, stream_type=0x%02x, type=%s, codec=%s",
			ppe.Pid, channel, ppe.StreamType, st.String(), sink.CodecName())
	}

	c.stats.ProgramChanges++
	if c.option.Observer != nil {
		c.option.Observer.OnProgramChange(c.Streams())
	}
	return ResultProgramChange, nil
}

// clearPmt 删除所有PMT PID，以及它们注册的es
func (c *Context) clearPmt() {
	for pid, ps := range c.pids {
		if ps.Kind != PacketKindPsi || pid == PidPat {
			continue
		}
		c.clearPes(ps.Channel)
		delete(c.pcrPids, ps.Channel)
		delete(c.programPcr, ps.Channel)
		delete(c.pids, pid)
	}
}

// clearPes 删除一个节目下的所有es
func (c *Context) clearPes(channel uint16) {
	for pid, ps := range c.pids {
		if ps.Kind != PacketKindPes || ps.Channel != channel {
			continue
		}
		c.closeUnit(ps)
		ps.sink.Reset()
		delete(c.pids, pid)
	}
}

func (c *Context) handlePes(ps *PidState, pkt *TsPacket) (Result, error) {
	payload := pkt.Payload

	if pkt.Header.IsUnitStart() {
		c.closeUnit(ps)
		ps.PrevPts = ps.Pts
		ps.PrevDts = ps.Dts
		ps.Pts = TimestampUnset
		ps.Dts = TimestampUnset
		ps.pes.Start()
		ps.inHeader = true
	}

	if ps.inHeader {
		consumed, done, err := ps.pes.Push(payload)
		if err != nil {
			// 丢弃该unit，等下一个unit start
			ps.inHeader = false
			c.stats.MalformedPes++
			c.logDump.OutHex(payload, "[%d] malformed pes header", ps.Pid)
			return ResultContinue, base.NewErrMalformedPes(ps.Pid, err.Error())
		}
		if !done {
			return ResultContinue, nil
		}
		ps.inHeader = false
		ps.unitOpen = true
		ps.boundary = true

		h := ps.pes.Header()
		if h.Pts != TimestampUnset {
			ps.Pts = h.Pts
			ps.Dts = h.Dts
			c.produce(ps)
		}
		payload = payload[consumed:]
	} else if !ps.unitOpen {
		return ResultContinue, nil
	}

	if ps.Streaming && len(payload) > 0 {
		ps.sink.Append(payload, ps.boundary)
		ps.boundary = false
	}
	return ResultContinue, nil
}

// closeUnit 结束该PID正在进行的unit，sink计算的时长记录到该PID最近一个packet上
func (c *Context) closeUnit(ps *PidState) {
	if !ps.unitOpen {
		return
	}
	ps.unitOpen = false
	d := ps.sink.EndUnit()
	if d > 0 && ps.lastIndex >= 0 {
		last := &c.packets[ps.lastIndex]
		if last.EsDuration == 0 {
			last.EsDuration = d
		}
	}
}

func (c *Context) produce(ps *PidState) {
	pcr := ps.Pcr
	if pcr == TimestampUnset {
		if p, ok := c.programPcr[ps.Channel]; ok {
			pcr = p
		}
	}

	pkt := ProducedPacket{
		Pid:        ps.Pid,
		StreamType: ps.StreamType,
		Pts:        ps.Pts,
		Dts:        ps.Dts,
		Pcr:        pcr,
	}

	if ps.lastIndex >= 0 {
		prev := &c.packets[ps.lastIndex]
		if prev.Duration == 0 {
			if d := DtsDistance(prev.Dts, pkt.Dts); d > 0 {
				prev.Duration = d
			} else {
				prev.Duration = prev.EsDuration
			}
		}
	}

	c.packets = append(c.packets, pkt)
	ps.lastIndex = len(c.packets) - 1
	c.stats.ProducedPackets++

	if ps.StreamType.IsVideo() && !c.startIsVideo {
		c.startTimestamp = pkt.Dts
		c.startIsVideo = true
	} else if c.startTimestamp == TimestampUnset {
		c.startTimestamp = pkt.Dts
	}

	if c.option.Observer != nil {
		c.option.Observer.OnPacket(pkt)
	}
}
