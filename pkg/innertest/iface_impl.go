// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package innertest

import (
	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/es"
	"github.com/q191201771/tsdemux/pkg/mpegts"
)

// ElementaryStream: 所有sink都满足
var (
	_ base.ElementaryStream = &es.AvcStream{}
	_ base.ElementaryStream = &es.HevcStream{}
	_ base.ElementaryStream = &es.AacStream{}
	_ base.ElementaryStream = &es.Ac3Stream{}
	_ base.ElementaryStream = &es.RawStream{}
)

// AvReader
var (
	_ mpegts.AvReader = &mpegts.BytesReader{}
	_ mpegts.AvReader = &mpegts.BufferedReader{}
)

var _ mpegts.SinkFactory = es.New
