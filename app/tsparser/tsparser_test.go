// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/naza/pkg/nazalog"

	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/innertest"
	"github.com/q191201771/tsdemux/pkg/report"
)

func TestParseConf(t *testing.T) {
	config, err := LoadConf("")
	assert.Equal(t, nil, err)
	assert.Equal(t, uint16(0), config.Channel)
	assert.Equal(t, "all", config.PrintMedia)
	assert.Equal(t, "partly", config.PrintPts)
	assert.Equal(t, report.DefaultBufferOutThreshold, config.BufferOutThreshold)
	assert.Equal(t, []string{".ts", ".dbts", ".265ts", ".bbts"}, config.Suffixes)
	assert.Equal(t, true, config.Workers > 0)
	assert.Equal(t, true, config.Streaming)
	assert.Equal(t, false, config.CheckCrc)
	assert.Equal(t, nazalog.LevelInfo, config.Log.Level)
	assert.Equal(t, "./logs/TsParserInfo.log", config.Log.Filename)
	assert.Equal(t, false, config.Log.IsToStdout)

	config, err = ParseConf([]byte(`{"channel": 2, "print_media": "video", "print_pts": "none", "workers": 0, "streaming": false, "suffixes": [".m2ts"], "log": {"level": 3}}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, uint16(2), config.Channel)
	assert.Equal(t, "video", config.PrintMedia)
	assert.Equal(t, "none", config.PrintPts)
	assert.Equal(t, 1, config.Workers)
	assert.Equal(t, false, config.Streaming)
	assert.Equal(t, []string{".m2ts"}, config.Suffixes)
	assert.Equal(t, nazalog.Level(3), config.Log.Level)
	assert.Equal(t, "./logs/TsParserInfo.log", config.Log.Filename)

	_, err = ParseConf([]byte(`{"print_media": "subtitle"}`))
	assert.Equal(t, true, errors.Is(err, base.ErrReport))
	_, err = ParseConf([]byte(`{"print_pts": "some"}`))
	assert.Equal(t, true, errors.Is(err, base.ErrReport))
	_, err = ParseConf([]byte(`{`))
	assert.IsNotNil(t, err)
	_, err = LoadConf("/not/exist/tsparser.conf.json")
	assert.IsNotNil(t, err)
}

func TestLoadConfFile(t *testing.T) {
	config, err := LoadConf("../../conf/tsparser.conf.json")
	assert.Equal(t, nil, err)
	assert.Equal(t, 4, config.Workers)
	assert.Equal(t, "partly", config.PrintPts)
	assert.Equal(t, "./logs/TsParserInfo.log", config.Log.Filename)
}

func TestApplyFlags(t *testing.T) {
	changedSet := func(names ...string) func(string) bool {
		return func(name string) bool {
			for _, n := range names {
				if n == name {
					return true
				}
			}
			return false
		}
	}

	config, _ := LoadConf("")
	applyFlags(changedSet(), &flagValues{channel: 3, workers: 8}, config)
	assert.Equal(t, uint16(0), config.Channel)
	assert.Equal(t, "all", config.PrintMedia)

	fv := flagValues{
		channel:    3,
		printVideo: true,
		allPts:     true,
		printPcr:   true,
		workers:    8,
		logFile:    "/tmp/a.log",
	}
	applyFlags(changedSet("channel", "print_video", "all_pts", "print_pcr", "workers", "log_file"), &fv, config)
	assert.Equal(t, uint16(3), config.Channel)
	assert.Equal(t, "video", config.PrintMedia)
	assert.Equal(t, "all", config.PrintPts)
	assert.Equal(t, true, config.PrintPcr)
	assert.Equal(t, 8, config.Workers)
	assert.Equal(t, "/tmp/a.log", config.Log.Filename)

	applyFlags(changedSet(), &flagValues{printVideo: true, printAudio: true, partlyPts: true}, config)
	assert.Equal(t, "all", config.PrintMedia)
	assert.Equal(t, "partly", config.PrintPts)

	applyFlags(changedSet(), &flagValues{printAudio: true}, config)
	assert.Equal(t, "audio", config.PrintMedia)
}

func TestTsParserFolder(t *testing.T) {
	dir := t.TempDir()
	b := innertest.EntryStream().Bytes()
	assert.Equal(t, nil, os.WriteFile(filepath.Join(dir, "a.ts"), b, 0o644))
	assert.Equal(t, nil, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	assert.Equal(t, nil, os.WriteFile(filepath.Join(dir, "sub", "b.265ts"), b, 0o644))
	assert.Equal(t, nil, os.WriteFile(filepath.Join(dir, "c.txt"), b, 0o644))
	assert.Equal(t, nil, os.WriteFile(filepath.Join(dir, "d.bbts"), make([]byte, 4096), 0o644))

	config, _ := LoadConf("")
	config.TsFolderPath = dir
	config.Workers = 2

	var out bytes.Buffer
	ret, err := NewTsParser(config, nil).Run(context.Background(), nil, &out)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, ret.Files)
	assert.Equal(t, 3*innertest.EntryFrameNum, ret.Packets)
	assert.Equal(t, []string{filepath.Join(dir, "d.bbts")}, ret.Skipped)
	assert.Equal(t, true, strings.Contains(out.String(), "## "+filepath.Join(dir, "a.ts")))
	assert.Equal(t, true, strings.Contains(out.String(), "skipped: "+filepath.Join(dir, "d.bbts")))

	config.Recursive = true
	out.Reset()
	ret, err = NewTsParser(config, nil).Run(context.Background(), nil, &out)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, ret.Files)
	assert.Equal(t, 6*innertest.EntryFrameNum, ret.Packets)
	assert.Equal(t, true, strings.Contains(out.String(), "## summary. files=2"))
}

func TestTsParserStdin(t *testing.T) {
	config, _ := LoadConf("")
	config.PrintPts = "all"

	var out bytes.Buffer
	b := innertest.EntryStream().Bytes()
	ret, err := NewTsParser(config, bytes.NewReader(b)).Run(context.Background(), []string{"-"}, &out)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, ret.Files)
	assert.Equal(t, 3*innertest.EntryFrameNum, ret.Packets)
	assert.Equal(t, 0, len(ret.Skipped))
	assert.Equal(t, true, strings.Contains(out.String(), "[video-0] pid=256"))

	// 管道形式的stdin，不能seek，每次只读到一部分
	out.Reset()
	ret, err = NewTsParser(config, &pipeReader{r: bytes.NewReader(b)}).Run(context.Background(), []string{"-"}, &out)
	assert.Equal(t, nil, err)
	assert.Equal(t, 3*innertest.EntryFrameNum, ret.Packets)
	assert.Equal(t, 0, len(ret.Skipped))

	_, err = NewTsParser(config, bytes.NewReader(b)).Run(context.Background(), []string{"-", "-"}, &out)
	assert.Equal(t, true, errors.Is(err, errNoInput))
}

type pipeReader struct {
	r io.Reader
}

func (p *pipeReader) Read(b []byte) (int, error) {
	if len(b) > 1000 {
		b = b[:1000]
	}
	return p.r.Read(b)
}

func TestTsParserError(t *testing.T) {
	config, _ := LoadConf("")

	var out bytes.Buffer
	_, err := NewTsParser(config, nil).Run(context.Background(), nil, &out)
	assert.Equal(t, true, errors.Is(err, errNoInput))

	// 所有文件都失败
	ret, err := NewTsParser(config, nil).Run(context.Background(), []string{"/not/exist/a.ts"}, &out)
	assert.Equal(t, true, errors.Is(err, base.ErrReportEmpty))
	assert.Equal(t, []string{"/not/exist/a.ts"}, ret.Skipped)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := innertest.EntryStream().Bytes()
	_, err = NewTsParser(config, bytes.NewReader(b)).Run(ctx, []string{"-"}, &out)
	assert.Equal(t, true, errors.Is(err, context.Canceled))
}

func TestTsParserDumpDir(t *testing.T) {
	dir := t.TempDir()
	b := innertest.EntryStream().Bytes()
	// 第5个包的adaptation_field_length越界
	off := 5 * 188
	b[off+3] |= 0x20
	b[off+4] = 200
	filename := filepath.Join(dir, "a.ts")
	assert.Equal(t, nil, os.WriteFile(filename, b, 0o644))

	config, _ := LoadConf("")
	config.DumpDir = filepath.Join(dir, "dump")

	var out bytes.Buffer
	ret, err := NewTsParser(config, nil).Run(context.Background(), []string{filename}, &out)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, ret.Files)

	df := base.NewDumpFile()
	assert.Equal(t, nil, df.OpenToRead(filepath.Join(config.DumpDir, "0_a.ts.tsdump")))
	m, err := df.ReadOneMessage()
	assert.Equal(t, nil, err)
	assert.Equal(t, uint64(off), m.Pos)
	assert.Equal(t, b[off:off+188], m.Body)
	_, err = df.ReadOneMessage()
	assert.Equal(t, io.EOF, err)
	_ = df.Close()
}
