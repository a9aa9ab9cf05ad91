// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package report

import (
	"github.com/q191201771/naza/pkg/nazalog"
)

var Log = nazalog.GetGlobalLogger()

// DefaultBufferOutThreshold PTS与DTS的差值超过1秒时认为解码缓冲区可能溢出，90kHz
const DefaultBufferOutThreshold int64 = 90000
