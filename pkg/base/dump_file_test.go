// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/q191201771/naza/pkg/assert"

	"github.com/q191201771/tsdemux/pkg/base"
)

func TestDumpFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "sub", "test.tsdump")

	df := base.NewDumpFile()
	err := df.OpenToWrite(filename)
	assert.Equal(t, nil, err)
	err = df.WriteWithType([]byte("hello"), base.DumpTypeTsPacket, 188)
	assert.Equal(t, nil, err)
	err = df.WriteWithType([]byte{0x47, 0x1f, 0xff}, base.DumpTypeTsPacket, 1<<33+4)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, df.Close())

	df = base.NewDumpFile()
	err = df.OpenToRead(filename)
	assert.Equal(t, nil, err)

	m, err := df.ReadOneMessage()
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(1), m.Ver)
	assert.Equal(t, base.DumpTypeTsPacket, m.Typ)
	assert.Equal(t, uint32(5), m.Len)
	assert.Equal(t, uint64(188), m.Pos)
	assert.Equal(t, []byte("hello"), m.Body)

	m, err = df.ReadOneMessage()
	assert.Equal(t, nil, err)
	assert.Equal(t, uint64(1<<33+4), m.Pos)
	assert.Equal(t, []byte{0x47, 0x1f, 0xff}, m.Body)

	_, err = df.ReadOneMessage()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, nil, df.Close())
}

func TestDumpFileCorrupt(t *testing.T) {
	dir := t.TempDir()

	// 版本号不对
	bad := filepath.Join(dir, "bad.tsdump")
	assert.Equal(t, nil, os.WriteFile(bad, make([]byte, 20), 0o644))
	df := base.NewDumpFile()
	assert.Equal(t, nil, df.OpenToRead(bad))
	_, err := df.ReadOneMessage()
	assert.Equal(t, true, errors.Is(err, base.ErrDumpFile))
	_ = df.Close()

	// body被截断
	truncated := filepath.Join(dir, "truncated.tsdump")
	df = base.NewDumpFile()
	assert.Equal(t, nil, df.OpenToWrite(truncated))
	assert.Equal(t, nil, df.WriteWithType(make([]byte, 188), base.DumpTypeTsPacket, 0))
	assert.Equal(t, nil, df.Close())
	assert.Equal(t, nil, os.Truncate(truncated, 100))

	df = base.NewDumpFile()
	assert.Equal(t, nil, df.OpenToRead(truncated))
	_, err = df.ReadOneMessage()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
	_ = df.Close()

	assert.Equal(t, nil, base.NewDumpFile().Close())
}
