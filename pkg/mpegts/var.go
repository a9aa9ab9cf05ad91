// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/naza/pkg/nazalog"
)

var Log = nazalog.GetGlobalLogger()

const syncByte uint8 = 0x47

// TS packet的大小。192为M2TS（每个包前面多了4字节的时间戳），204为DVB-ASI，208为ATSC（包尾部多了FEC字节）
//
// 无论包大小是多少，TS协议相关的内容都只在从sync byte开始的188字节中
const (
	TsPacketSize       = 188
	TsPacketSizeM2ts   = 192
	TsPacketSizeDvbAsi = 204
	TsPacketSizeAtsc   = 208
)

// TsPacketSizeCandidates 配置包大小时参与打分的候选值，顺序即打分顺序
var TsPacketSizeCandidates = []int{TsPacketSize, TsPacketSizeM2ts, TsPacketSizeDvbAsi, TsPacketSizeAtsc}

const (
	tsCheckMinScore = 2
	tsCheckMaxScore = 10
)

// PID
const (
	PidPat  uint16 = 0x0000
	PidCat  uint16 = 0x0001
	PidNull uint16 = 0x1FFF
)

// AdaptationFieldControl
// <iso13818-1.pdf> <Table 2-5> <page 38/174>
const (
	AdaptationFieldControlReserved uint8 = 0 // Reserved for future use by ISO/IEC
	AdaptationFieldControlNo       uint8 = 1 // No adaptation_field, payload only
	AdaptationFieldControlOnly     uint8 = 2 // Adaptation_field only, no payload
	AdaptationFieldControlFollowed uint8 = 3 // Adaptation_field followed by payload
)

// PMT中的stream_type
// <iso13818-1.pdf> <Table 2-29 Stream type assignments> <page 66/174>
const (
	StreamTypeMpeg1Video  uint8 = 0x01
	StreamTypeMpeg2Video  uint8 = 0x02
	StreamTypeMpeg1Audio  uint8 = 0x03
	StreamTypeMpeg2Audio  uint8 = 0x04
	StreamTypePrivateData uint8 = 0x06
	StreamTypeAacAdts     uint8 = 0x0F
	StreamTypeMpeg4Video  uint8 = 0x10
	StreamTypeAacLatm     uint8 = 0x11
	StreamTypeH264        uint8 = 0x1B
	StreamTypeHevc        uint8 = 0x24
	StreamTypeLpcm        uint8 = 0x80
	StreamTypeAc3         uint8 = 0x81
	StreamTypeDts         uint8 = 0x82
	StreamTypeTrueHd      uint8 = 0x83
	StreamTypeEac3        uint8 = 0x84
	StreamTypeDtsHd       uint8 = 0x85
	StreamTypeEac3Atsc    uint8 = 0x87
	StreamTypeDtsHdMa     uint8 = 0x8A
	StreamTypeVc1         uint8 = 0xEA
)

// PES中的stream_id
const (
	StreamIdPrivateStream1 uint8 = 0xBD
	StreamIdAudioStart     uint8 = 0xC0
	StreamIdVideoStart     uint8 = 0xE0
	StreamIdVideoEnd       uint8 = 0xEF
)

// 时间戳相关
const (
	// TimestampUnset PTS、DTS、PCR未设置时的值
	TimestampUnset int64 = -1

	// PtsClockRate PTS/DTS时钟频率
	PtsClockRate = 90000

	// PcrClockRate PCR时钟频率，PCR = PTS域 * 300
	PcrClockRate = 27000000

	// PtsMask 33位
	PtsMask int64 = 0x1FFFFFFFF
)

const (
	// maxSectionSize PSI section重组缓存的大小上限，包含table_id以及section_length在内的3字节头
	maxSectionSize = 4096

	// maxPesHeaderSize PES header最大长度，9字节固定部分加上最大255字节的可选部分
	maxPesHeaderSize = 9 + 255

	ccUnset uint8 = 0xFF
)
