// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"context"
	"errors"
	"io"

	"github.com/q191201771/tsdemux/pkg/base"
)

// Demuxer 驱动循环：同步 -> 解析TS包 -> 分发，直到输入结束
type Demuxer struct {
	r       AvReader
	sync    *Synchronizer
	ctx     *Context
	logDump base.LogDump
	dump    *base.DumpFile
}

func NewDemuxer(r AvReader, modOptions ...ModDemuxerOption) *Demuxer {
	return &Demuxer{
		r:       r,
		sync:    NewSynchronizer(r),
		ctx:     NewContext(modOptions...),
		logDump: base.NewLogDump(Log, 32, 0),
	}
}

// Run 解析整个输入，阻塞直到输入结束、出错，或者`ctx`被取消
//
// 确定包大小失败时返回 base.ErrIo 或 base.ErrNoSync，此时没有任何输出。
// 其他情况下，返回前都会调用 Context.Flush ，输出序列可用
//
// @return err: nil 输入正常结束，或者中途失去同步
//              base.ErrIo, base.ErrNoSync, ctx.Err()
//
func (d *Demuxer) Run(ctx context.Context) error {
	if _, err := d.sync.Configure(); err != nil {
		return err
	}

	defer d.ctx.Flush()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		b, err := d.sync.Resync()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, base.ErrNoSync) {
				Log.Warnf("stop demux. err=%+v", err)
				return nil
			}
			return err
		}

		res, err := d.ctx.FeedPacket(b)
		if err != nil && !errors.Is(err, base.ErrNullPacket) {
			if d.logDump.ShouldDump() {
				d.logDump.Outf("pos=%d, err=%+v", d.sync.Position(), err)
			}
			if d.dump != nil {
				if werr := d.dump.WriteWithType(b, base.DumpTypeTsPacket, d.sync.Position()); werr != nil {
					Log.Warnf("write dump file failed. err=%+v", werr)
					d.dump = nil
				}
			}
		}
		if res == ResultProgramChange {
			Log.Infof("program changed. streams=%d, pos=%d", len(d.ctx.Streams()), d.sync.Position())
		}
		d.sync.GoNext()
	}
}

// SetDumpFile 解析失败的TS包写入`dump`，需要在 Run 之前调用
func (d *Demuxer) SetDumpFile(dump *base.DumpFile) {
	d.dump = dump
}

func (d *Demuxer) Context() *Context {
	return d.ctx
}

func (d *Demuxer) PacketSize() int {
	return d.sync.PacketSize()
}

func (d *Demuxer) Packets() []ProducedPacket {
	return d.ctx.Packets()
}

func (d *Demuxer) Streams() []StreamDescription {
	return d.ctx.Streams()
}

func (d *Demuxer) StartTimestamp() int64 {
	return d.ctx.StartTimestamp()
}

func (d *Demuxer) Stats() Stats {
	return d.ctx.Stats()
}

func (d *Demuxer) StartStreaming(pid uint16) bool {
	return d.ctx.StartStreaming(pid)
}

func (d *Demuxer) StopStreaming(pid uint16) bool {
	return d.ctx.StopStreaming(pid)
}
