// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/q191201771/naza/pkg/filebatch"
	"github.com/q191201771/naza/pkg/nazaerrors"
	"github.com/q191201771/naza/pkg/nazalog"
	"golang.org/x/sync/errgroup"

	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/mpegts"
	"github.com/q191201771/tsdemux/pkg/report"
)

const stdinName = "-"

var errNoInput = errors.New("tsparser: no input file")

type input struct {
	name  string
	index int
}

// RunResult 一次批量解析的结果
type RunResult struct {
	report.Summary

	// Skipped 确定包大小失败或者打不开的文件，没有任何输出
	Skipped []string
}

// TsParser 批量解析多个文件，每个文件独立走一遍单线程的解析流程
type TsParser struct {
	config    *Config
	stdin     io.Reader
	container *report.Container
}

func NewTsParser(config *Config, stdin io.Reader) *TsParser {
	return &TsParser{
		config:    config,
		stdin:     stdin,
		container: report.NewContainer(config.ReportOptions()),
	}
}

// Run 解析所有输入并把结果打印到`w`
//
// 单个文件的失败只记录日志并跳过，只有`ctx`被取消或者没有任何输入时返回错误
//
func (p *TsParser) Run(ctx context.Context, args []string, w io.Writer) (RunResult, error) {
	var ret RunResult

	inputs, err := p.collectInputs(args)
	if err != nil {
		return ret, err
	}
	if len(inputs) == 0 {
		return ret, errNoInput
	}
	nazalog.Infof("collect inputs. count=%d, workers=%d", len(inputs), p.config.Workers)

	skipped := make([]bool, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)
	for i := range inputs {
		in := inputs[i]
		g.Go(func() error {
			err := p.demuxOne(gctx, in)
			if err == nil {
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			nazalog.Warnf("skip file. file=%s, err=%+v", in.name, err)
			skipped[in.index] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ret, err
	}

	for i, in := range inputs {
		if skipped[i] {
			ret.Skipped = append(ret.Skipped, in.name)
		}
	}
	if len(ret.Skipped) == len(inputs) {
		return ret, base.ErrReportEmpty
	}

	ret.Summary = p.container.Print(w)
	for _, name := range ret.Skipped {
		_, _ = fmt.Fprintf(w, "skipped: %s\n", name)
	}
	return ret, nil
}

// collectInputs 命令行中的文件在前，目录中找到的文件在后
func (p *TsParser) collectInputs(args []string) ([]input, error) {
	var names []string
	hasStdin := false
	for _, arg := range args {
		if arg == stdinName {
			if hasStdin {
				return nil, fmt.Errorf("%w. stdin specified more than once", errNoInput)
			}
			hasStdin = true
		}
		names = append(names, arg)
	}

	if p.config.TsFolderPath != "" {
		err := filebatch.Walk(p.config.TsFolderPath, p.config.Recursive, "",
			func(path string, info os.FileInfo, content []byte, err error) []byte {
				if err != nil {
					nazalog.Warnf("walk failed. path=%s, err=%+v", path, err)
					return nil
				}
				if info != nil && info.IsDir() {
					return nil
				}
				if p.acceptSuffix(path) {
					names = append(names, path)
				}
				return nil
			})
		if err != nil {
			return nil, nazaerrors.Wrap(err)
		}
	}

	inputs := make([]input, len(names))
	for i, name := range names {
		inputs[i] = input{name: name, index: i}
	}
	return inputs, nil
}

func (p *TsParser) acceptSuffix(path string) bool {
	for _, suffix := range p.config.Suffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func (p *TsParser) demuxOne(ctx context.Context, in input) error {
	var r io.Reader
	if in.name == stdinName {
		r = p.stdin
	} else {
		fp, err := os.Open(in.name)
		if err != nil {
			return fmt.Errorf("%w. %s", base.ErrFileNotExist, err.Error())
		}
		defer fp.Close()
		r = fp
	}

	d := mpegts.NewDemuxer(mpegts.NewBufferedReader(r, base.TsAvBufferSize), func(option *mpegts.DemuxerOption) {
		option.Channel = p.config.Channel
		option.Streaming = p.config.Streaming
		option.CheckCrc = p.config.CheckCrc
	})
	if p.config.DumpDir != "" {
		df, err := p.openDumpFile(in)
		if err != nil {
			nazalog.Warnf("open dump file failed. file=%s, err=%+v", in.name, err)
		} else {
			defer df.Close()
			d.SetDumpFile(df)
		}
	}
	if err := d.Run(ctx); err != nil {
		if d.PacketSize() == 0 {
			return err
		}
		// 中途出错，已经解析出来的部分照常输出
		nazalog.Warnf("demux interrupted. file=%s, err=%+v", in.name, err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}

	stats := d.Stats()
	nazalog.Infof("demux done. file=%s, packet size=%d, packets=%d, produced=%d, discontinuities=%d",
		in.name, d.PacketSize(), stats.Packets, len(d.Packets()), stats.Discontinuities)

	p.container.Add(report.NewTsParam(in.name, in.index, d))
	return nil
}

func (p *TsParser) openDumpFile(in input) (*base.DumpFile, error) {
	name := "stdin"
	if in.name != stdinName {
		name = filepath.Base(in.name)
	}
	df := base.NewDumpFile()
	filename := filepath.Join(p.config.DumpDir, fmt.Sprintf("%d_%s.tsdump", in.index, name))
	if err := df.OpenToWrite(filename); err != nil {
		return nil, err
	}
	return df, nil
}
