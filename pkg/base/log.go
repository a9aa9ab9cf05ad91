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

	"github.com/q191201771/naza/pkg/nazabytes"
	"github.com/q191201771/naza/pkg/nazalog"
)

// LogDump 控制异常输入数据的十六进制打印次数
//
// 损坏的TS文件中，同一类错误可能每个包都会出现一次，全部dump出来会淹没日志
type LogDump struct {
	log         nazalog.Logger
	debugMaxNum int
	dumpMaxLen  int

	debugCount int
}

// NewLogDump
//
// @param debugMaxNum: 日志最小级别为debug时，使用debug打印日志次数的阈值
// @param dumpMaxLen:  OutHex 最多dump的字节数
//
func NewLogDump(log nazalog.Logger, debugMaxNum int, dumpMaxLen int) LogDump {
	return LogDump{
		log:         log,
		debugMaxNum: debugMaxNum,
		dumpMaxLen:  dumpMaxLen,
	}
}

func (ld *LogDump) ShouldDump() bool {
	switch ld.log.GetOption().Level {
	case nazalog.LevelTrace:
		return true
	case nazalog.LevelDebug:
		if ld.debugCount >= ld.debugMaxNum {
			return false
		}
		ld.debugCount++
		return true
	}
	return false
}

// Outf
//
// 调用之前需调用 ShouldDump，避免不需要打印时构造实参的开销
//
func (ld *LogDump) Outf(format string, v ...interface{}) {
	ld.log.Out(ld.log.GetOption().Level, 3, fmt.Sprintf(format, v...))
}

// OutHex 打印一行描述以及`b`前 dumpMaxLen 字节的十六进制内容，内部调用 ShouldDump
func (ld *LogDump) OutHex(b []byte, format string, v ...interface{}) {
	if !ld.ShouldDump() {
		return
	}
	ld.log.Out(ld.log.GetOption().Level, 3, fmt.Sprintf(format, v...)+"\n"+hex.Dump(nazabytes.Prefix(b, ld.dumpMaxLen)))
}
