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
	"fmt"
	"io"

	"github.com/q191201771/tsdemux/pkg/base"
)

// Synchronizer 确定TS包大小，并逐个定位TS包
type Synchronizer struct {
	r          AvReader
	pos        uint64
	packetSize int
	configured bool
}

func NewSynchronizer(r AvReader) *Synchronizer {
	return &Synchronizer{
		r: r,
	}
}

// Configure 通过对同步字节打分，确定TS包大小
//
// 从当前位置开始，对每个候选大小，向后每隔一个包大小探测一次同步字节，连续命中`score`次即达标。
// 只有一个候选达标时确定包大小；多个候选达标时提高`score`；没有候选达标时后移1字节重试。
//
// 探测位置超出输入末尾时视为未命中，所以只有少量包的输入也能确定包大小
//
// @return err: base.ErrIo    起始位置就读不到数据
//              base.ErrNoSync 扫描预算内无法确定唯一的包大小
//
func (s *Synchronizer) Configure() (int, error) {
	pos := s.pos
	score := tsCheckMinScore

	for i := 0; i < base.TsMaxResyncSize; i++ {
		b, err := s.r.ReadAv(pos, 1)
		if err != nil {
			if errors.Is(err, io.EOF) && pos > s.pos {
				// 扫到输入末尾都没有找到
				break
			}
			return 0, s.wrapIoErr(err, pos)
		}
		if b[0] != syncByte {
			pos++
			continue
		}

		count := 0
		found := 0
		for _, size := range TsPacketSizeCandidates {
			if s.probe(pos, size, score) == score {
				found = size
				count++
			}
		}

		if count == 1 {
			Log.Debugf("packet size is %d. pos=%d", found, pos)
			s.pos = pos
			s.packetSize = found
			s.configured = true
			return found, nil
		}
		if count > 1 {
			score++
			if score > tsCheckMaxScore {
				break
			}
		}
		pos++
	}

	return 0, fmt.Errorf("%w. cannot determine packet size. pos=%d", base.ErrNoSync, pos)
}

// Resync 从当前位置开始找同步字节，找到后返回从同步字节开始的188字节
//
// 当前位置不是同步字节时逐字节后移，最多 base.TsMaxResyncSize 次
//
// @return err: io.EOF 输入结束
//              base.ErrIo, base.ErrNoSync
//
func (s *Synchronizer) Resync() ([]byte, error) {
	if !s.configured {
		if _, err := s.Configure(); err != nil {
			return nil, err
		}
	}

	for i := 0; i < base.TsMaxResyncSize; i++ {
		b, err := s.r.ReadAv(s.pos, TsPacketSize)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		if b[0] == syncByte {
			if i != 0 {
				Log.Debugf("resync. skipped=%d, pos=%d", i, s.pos)
			}
			return b, nil
		}
		s.pos++
	}
	return nil, fmt.Errorf("%w. lost sync. pos=%d", base.ErrNoSync, s.pos)
}

// GoNext 跳到下一个TS包
func (s *Synchronizer) GoNext() uint64 {
	s.pos += uint64(s.packetSize)
	return s.pos
}

// Shift 后移1字节，用于当前包解析失败后重新同步
func (s *Synchronizer) Shift() uint64 {
	s.pos++
	return s.pos
}

func (s *Synchronizer) GoPosition(pos uint64) {
	s.pos = pos
}

func (s *Synchronizer) Position() uint64 {
	return s.pos
}

func (s *Synchronizer) PacketSize() int {
	return s.packetSize
}

// probe 返回从`pos`开始，以`size`为间隔连续命中同步字节的次数，最多`score`次
func (s *Synchronizer) probe(pos uint64, size int, score int) int {
	hits := 0
	for hits < score {
		pos += uint64(size)
		b, err := s.r.ReadAv(pos, 1)
		if err != nil || b[0] != syncByte {
			break
		}
		hits++
	}
	return hits
}

func (s *Synchronizer) wrapIoErr(err error, pos uint64) error {
	if errors.Is(err, base.ErrIo) {
		return err
	}
	return fmt.Errorf("%w. pos=%d, err=%s", base.ErrIo, pos, err.Error())
}
