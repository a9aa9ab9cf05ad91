// Copyright 2019, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

import (
	"github.com/q191201771/naza/pkg/nazabits"
	"github.com/q191201771/naza/pkg/nazalog"

	"github.com/q191201771/tsdemux/pkg/base"
)

var Log = nazalog.GetGlobalLogger()

var NaluUintTypeMapping = map[uint8]string{
	1: "SLICE",
	5: "IDR",
	6: "SEI",
	7: "SPS",
	8: "PPS",
	9: "AUD",
}

var SliceTypeMapping = map[uint8]string{
	0: "P",
	1: "B",
	2: "I",
	3: "SP",
	4: "SI",
	5: "P",
	6: "B",
	7: "I",
	8: "SP",
	9: "SI",
}

const (
	NaluUnitTypeSlice    uint8 = 1
	NaluUnitTypeIDRSlice uint8 = 5
	NaluUnitTypeSEI      uint8 = 6
	NaluUintTypeSPS      uint8 = 7
	NaluUintTypePPS      uint8 = 8
	NaluUintTypeAUD      uint8 = 9
)

const (
	SliceTypeP  uint8 = 0
	SliceTypeB  uint8 = 1
	SliceTypeI  uint8 = 2
	SliceTypeSP uint8 = 3
	SliceTypeSI uint8 = 4
)

// CalcSliceType 解析slice header中的slice_type
func CalcSliceType(nalu []byte) (uint8, error) {
	if len(nalu) < 2 {
		return 0, base.ErrAvc
	}
	br := nazabits.NewBitReader(nalu[1:])
	// first_mb_in_slice
	if _, err := br.ReadGolomb(); err != nil {
		return 0, err
	}
	t, err := br.ReadGolomb()
	if err != nil {
		return 0, err
	}
	if t > 9 {
		return 0, base.ErrAvc
	}
	if t > 4 {
		t -= 5
	}
	return uint8(t), nil
}

func CalcSliceTypeReadable(nalu []byte) string {
	t, err := CalcSliceType(nalu)
	if err != nil {
		return "unknown"
	}
	ret, ok := SliceTypeMapping[t]
	if !ok {
		return "unknown"
	}
	return ret
}

func CalcNaluType(nalu []byte) uint8 {
	return nalu[0] & 0x1f
}

func CalcNaluTypeReadable(nalu []byte) string {
	t := nalu[0] & 0x1f
	ret, ok := NaluUintTypeMapping[t]
	if !ok {
		return "unknown"
	}
	return ret
}
