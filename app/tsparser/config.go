// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"encoding/json"
	"os"
	"runtime"

	"github.com/q191201771/naza/pkg/nazaerrors"
	"github.com/q191201771/naza/pkg/nazajson"
	"github.com/q191201771/naza/pkg/nazalog"

	"github.com/q191201771/tsdemux/pkg/report"
)

const defaultLogFilename = "./logs/TsParserInfo.log"

var defaultSuffixes = []string{".ts", ".dbts", ".265ts", ".bbts"}

type Config struct {
	Channel            uint16 `json:"channel"`
	PrintMedia         string `json:"print_media"`
	PrintPts           string `json:"print_pts"`
	PrintPcr           bool   `json:"print_pcr"`
	ShowStreams        bool   `json:"show_streams"`
	CheckBufferOut     bool   `json:"check_buffer_out"`
	BufferOutThreshold int64  `json:"buffer_out_threshold"`

	TsFolderPath string   `json:"ts_folder_path"`
	Recursive    bool     `json:"recursive"`
	Suffixes     []string `json:"suffixes"`
	Workers      int      `json:"workers"`

	Streaming bool `json:"streaming"`
	CheckCrc  bool `json:"check_crc"`

	// DumpDir 非空时，每个文件解析失败的TS包写入该目录下的dump文件
	DumpDir string `json:"dump_dir"`

	Log nazalog.Option `json:"log"`
}

// LoadConf 读取配置文件，`confFile`为空时全部使用默认值
func LoadConf(confFile string) (*Config, error) {
	if confFile == "" {
		return ParseConf([]byte("{}"))
	}
	rawContent, err := os.ReadFile(confFile)
	if err != nil {
		return nil, nazaerrors.Wrap(err)
	}
	return ParseConf(rawContent)
}

func ParseConf(rawContent []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(rawContent, &config); err != nil {
		return nil, nazaerrors.Wrap(err)
	}

	j, err := nazajson.New(rawContent)
	if err != nil {
		return nil, nazaerrors.Wrap(err)
	}

	// 配置不存在时，设置默认值
	if !j.Exist("print_media") {
		config.PrintMedia = report.PrintMediaAll.String()
	}
	if !j.Exist("print_pts") {
		config.PrintPts = report.PrintPtsPartly.String()
	}
	if !j.Exist("buffer_out_threshold") {
		config.BufferOutThreshold = report.DefaultBufferOutThreshold
	}
	if !j.Exist("suffixes") {
		config.Suffixes = append([]string(nil), defaultSuffixes...)
	}
	if !j.Exist("workers") {
		config.Workers = runtime.NumCPU()
	}
	if !j.Exist("streaming") {
		config.Streaming = true
	}

	if !j.Exist("log.level") {
		config.Log.Level = nazalog.LevelInfo
	}
	if !j.Exist("log.filename") {
		config.Log.Filename = defaultLogFilename
	}
	if !j.Exist("log.is_to_stdout") {
		// 标准输出留给解析结果
		config.Log.IsToStdout = false
	}
	if !j.Exist("log.is_rotate_daily") {
		config.Log.IsRotateDaily = false
	}
	if !j.Exist("log.short_file_flag") {
		config.Log.ShortFileFlag = true
	}
	if !j.Exist("log.assert_behavior") {
		config.Log.AssertBehavior = nazalog.AssertError
	}

	// 检查配置项
	if _, err := report.ParsePrintMedia(config.PrintMedia); err != nil {
		return nil, err
	}
	if _, err := report.ParsePrintPts(config.PrintPts); err != nil {
		return nil, err
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}

	return &config, nil
}

// ReportOptions 转换成 report.Container 的选项
func (c *Config) ReportOptions() report.ModOption {
	return func(option *report.Option) {
		// 已经在ParseConf中检查过
		option.PrintMedia, _ = report.ParsePrintMedia(c.PrintMedia)
		option.PrintPts, _ = report.ParsePrintPts(c.PrintPts)
		option.PrintPcr = c.PrintPcr
		option.ShowStreams = c.ShowStreams
		option.CheckBufferOut = c.CheckBufferOut
		option.BufferOutThreshold = c.BufferOutThreshold
	}
}
