// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/q191201771/naza/pkg/bininfo"
	"github.com/q191201771/naza/pkg/nazalog"
	"github.com/spf13/cobra"

	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/report"
)

// flagValues 命令行参数，只有显式指定的才会覆盖配置文件
type flagValues struct {
	confFile string
	version  bool

	channel        uint16
	printVideo     bool
	printAudio     bool
	printAll       bool
	allPts         bool
	partlyPts      bool
	printPcr       bool
	showStreams    bool
	checkBufferOut bool

	tsFolderPath string
	recursive    bool
	workers      int
	logFile      string
	dumpDir      string
}

var fv flagValues

var rootCmd = &cobra.Command{
	Use:   "tsparser [flags] <file>... | -",
	Short: "Demux MPEG-TS files and print the timestamps of every audio and video frame.",
	Example: `  ./bin/tsparser --print_video --all_pts ./testdata/test.ts
  ./bin/tsparser --ts_folder_path ./record --recursive --check_buffer_out
  cat ./testdata/test.ts | ./bin/tsparser -`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runE,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&fv.confFile, "conf", "c", "", "specify conf file")
	flags.BoolVar(&fv.version, "version", false, "show bin info")

	flags.Uint16Var(&fv.channel, "channel", 0, "only parse the program with this program_number, 0 means all")
	flags.BoolVar(&fv.printVideo, "print_video", false, "print video timestamps only")
	flags.BoolVar(&fv.printAudio, "print_audio", false, "print audio timestamps only")
	flags.BoolVar(&fv.printAll, "print_all", false, "print both audio and video timestamps")
	flags.BoolVar(&fv.allPts, "all_pts", false, "print every frame")
	flags.BoolVar(&fv.partlyPts, "partly_pts", false, "print the first and last frame of each stream per file")
	flags.BoolVar(&fv.printPcr, "print_pcr", false, "print pcr with each frame")
	flags.BoolVar(&fv.showStreams, "show_streams", false, "dump stream infos of each file")
	flags.BoolVar(&fv.checkBufferOut, "check_buffer_out", false, "report frames whose pts-dts exceeds the threshold")

	flags.StringVar(&fv.tsFolderPath, "ts_folder_path", "", "parse all ts files in this folder")
	flags.BoolVar(&fv.recursive, "recursive", false, "walk sub folders of ts_folder_path")
	flags.IntVar(&fv.workers, "workers", 0, "how many files are demuxed in parallel")
	flags.StringVar(&fv.logFile, "log_file", "", "log file name")
	flags.StringVar(&fv.dumpDir, "dump_dir", "", "write ts packets that failed to parse into this folder")

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
}

func main() {
	err := rootCmd.Execute()
	nazalog.Sync()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func runE(cmd *cobra.Command, args []string) error {
	if fv.version {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), bininfo.StringifyMultiLine())
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), base.TsdemuxFullInfo)
		return nil
	}

	config, err := LoadConf(fv.confFile)
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags().Changed, &fv, config)

	if len(args) == 0 && config.TsFolderPath == "" {
		_ = cmd.Help()
		return errNoInput
	}

	if err := initLog(config.Log); err != nil {
		return err
	}
	base.LogoutStartInfo()
	nazalog.Infof("load conf succ. file=%s, content=%+v", fv.confFile, config)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	ret, err := NewTsParser(config, os.Stdin).Run(ctx, args, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	nazalog.Infof("done. files=%d, packets=%d, issues=%d, skipped=%d",
		ret.Files, ret.Packets, len(ret.Issues), len(ret.Skipped))
	return nil
}

// applyFlags 用显式指定的命令行参数覆盖配置
func applyFlags(changed func(name string) bool, fv *flagValues, config *Config) {
	if changed("channel") {
		config.Channel = fv.channel
	}

	// 同时指定video和audio等同于 --print_all
	switch {
	case fv.printAll || (fv.printVideo && fv.printAudio):
		config.PrintMedia = report.PrintMediaAll.String()
	case fv.printVideo:
		config.PrintMedia = report.PrintMediaVideo.String()
	case fv.printAudio:
		config.PrintMedia = report.PrintMediaAudio.String()
	}

	switch {
	case fv.allPts:
		config.PrintPts = report.PrintPtsAll.String()
	case fv.partlyPts:
		config.PrintPts = report.PrintPtsPartly.String()
	}

	if changed("print_pcr") {
		config.PrintPcr = fv.printPcr
	}
	if changed("show_streams") {
		config.ShowStreams = fv.showStreams
	}
	if changed("check_buffer_out") {
		config.CheckBufferOut = fv.checkBufferOut
	}
	if changed("ts_folder_path") {
		config.TsFolderPath = fv.tsFolderPath
	}
	if changed("recursive") {
		config.Recursive = fv.recursive
	}
	if changed("workers") && fv.workers > 0 {
		config.Workers = fv.workers
	}
	if changed("log_file") {
		config.Log.Filename = fv.logFile
	}
	if changed("dump_dir") {
		config.DumpDir = fv.dumpDir
	}
}

func initLog(opt nazalog.Option) error {
	if err := nazalog.Init(func(option *nazalog.Option) {
		*option = opt
	}); err != nil {
		return fmt.Errorf("initial log failed. err=%+v", err)
	}
	nazalog.Info("initial log succ.")
	return nil
}
