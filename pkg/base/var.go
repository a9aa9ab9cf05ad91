// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

// ----- mpegts --------------------
var (
	// TsMaxResyncSize 配置包大小以及重新同步时，最多向后扫描的字节数
	TsMaxResyncSize = 65536

	// TsAvBufferSize 带缓冲的输入读取器的窗口大小
	TsAvBufferSize = 131072
)

// ----- es --------------------
var (
	// EsMaxUnitSize 单个access unit在sink中最多缓存的字节数，超过后丢弃该unit剩余的数据
	EsMaxUnitSize = 4 * 1024 * 1024
)
