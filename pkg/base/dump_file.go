// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazabytes"
)

// DumpFile 把解析失败的TS包连同它在输入中的位置一起写入文件，便于事后复现
//
// 每条消息: Ver[4] Typ[4] Len[4] Pos[8] Body[Len]，大端
//
type DumpFile struct {
	mu   sync.Mutex
	file *os.File
}

type DumpType uint32

const (
	DumpTypeTsPacket DumpType = 1
)

const (
	dumpFileVersion    = 1
	dumpFileHeaderSize = 20
)

type DumpFileMessage struct {
	Ver  uint32
	Typ  DumpType
	Len  uint32
	Pos  uint64 // 在输入中的字节偏移
	Body []byte
}

func NewDumpFile() *DumpFile {
	return &DumpFile{}
}

func (d *DumpFile) OpenToWrite(filename string) (err error) {
	dir := filepath.Dir(filename)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	d.file, err = os.Create(filename)
	return
}

func (d *DumpFile) OpenToRead(filename string) (err error) {
	d.file, err = os.Open(filename)
	return
}

// WriteWithType 可以在多个goroutine中调用
func (d *DumpFile) WriteWithType(b []byte, typ DumpType, pos uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.file.Write(d.pack(b, typ, pos))
	return err
}

// ReadOneMessage
//
// @return err: 文件结束时为io.EOF
//
func (d *DumpFile) ReadOneMessage() (m DumpFileMessage, err error) {
	var h [dumpFileHeaderSize]byte
	if _, err = io.ReadFull(d.file, h[:]); err != nil {
		return
	}
	m.Ver = bele.BeUint32(h[:])
	m.Typ = DumpType(bele.BeUint32(h[4:]))
	m.Len = bele.BeUint32(h[8:])
	m.Pos = uint64(bele.BeUint32(h[12:]))<<32 | uint64(bele.BeUint32(h[16:]))
	if m.Ver != dumpFileVersion {
		err = fmt.Errorf("%w. version=%d", ErrDumpFile, m.Ver)
		return
	}

	m.Body = make([]byte, m.Len)
	if _, err = io.ReadFull(d.file, m.Body); err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return
}

func (d *DumpFile) Close() error {
	if d.file == nil {
		return nil
	}
	return d.file.Close()
}

// ---------------------------------------------------------------------------------------------------------------------

func (m *DumpFileMessage) DebugString() string {
	return fmt.Sprintf("ver: %d, typ: %d, len: %d, pos: %d, hex: %s",
		m.Ver, m.Typ, m.Len, m.Pos, hex.Dump(nazabytes.Prefix(m.Body, 16)))
}

// ---------------------------------------------------------------------------------------------------------------------

func (d *DumpFile) pack(b []byte, typ DumpType, pos uint64) []byte {
	ret := make([]byte, len(b)+dumpFileHeaderSize)
	bele.BePutUint32(ret, dumpFileVersion)
	bele.BePutUint32(ret[4:], uint32(typ))
	bele.BePutUint32(ret[8:], uint32(len(b)))
	bele.BePutUint64(ret[12:], pos)
	copy(ret[dumpFileHeaderSize:], b)
	return ret
}
