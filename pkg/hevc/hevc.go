// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import (
	"github.com/q191201771/naza/pkg/nazabits"
	"github.com/q191201771/naza/pkg/nazaerrors"

	"github.com/q191201771/tsdemux/pkg/base"
	"github.com/q191201771/tsdemux/pkg/h2645"
)

var NaluTypeMapping = map[uint8]string{
	h2645.H265NaluTypeSliceTrailR: "SLICE",
	h2645.H265NaluTypeSliceIdr:    "I",
	h2645.H265NaluTypeSliceIdrNlp: "IDR",
	h2645.H265NaluTypeVps:         "VPS",
	h2645.H265NaluTypeSps:         "SPS",
	h2645.H265NaluTypePps:         "PPS",
	h2645.H265NaluTypeAud:         "AUD",
	h2645.H265NaluTypeSei:         "SEI",
	h2645.H265NaluTypeSeiSuffix:   "SEI",
}

func CalcNaluTypeReadable(nalu []byte) string {
	b, ok := NaluTypeMapping[CalcNaluType(nalu)]
	if !ok {
		return "unknown"
	}
	return b
}

func CalcNaluType(nalu []byte) uint8 {
	// 6 bit in middle
	// 0*** ***0
	return (nalu[0] & 0x7E) >> 1
}

// Context 从SPS中解析出的信息
type Context struct {
	GeneralProfileSpace uint8
	GeneralTierFlag     uint8
	GeneralProfileIdc   uint8
	GeneralLevelIdc     uint8

	ChromaFormatIdc uint32
	Width           uint32
	Height          uint32
	Interlaced      bool
}

// ParseSps
//
// <ISO_IEC_23008-2_2013.pdf> <7.3.2.2 Sequence parameter set RBSP syntax>
// 只解析到conformance window
//
// @param payload: sps nalu，包含2字节nalu header，已经去掉防竞争字节
//
func ParseSps(payload []byte, ctx *Context) error {
	if len(payload) < 2 {
		return nazaerrors.Wrap(base.ErrHevc)
	}
	if CalcNaluType(payload) != h2645.H265NaluTypeSps {
		return nazaerrors.Wrap(base.ErrHevc)
	}

	br := nazabits.NewBitReader(payload[2:])

	// sps_video_parameter_set_id
	if _, err := br.ReadBits8(4); err != nil {
		return nazaerrors.Wrap(err)
	}
	maxSubLayersMinus1, err := br.ReadBits8(3)
	if err != nil {
		return nazaerrors.Wrap(err)
	}
	if maxSubLayersMinus1 >= maxSubLayers {
		return nazaerrors.Wrap(base.ErrHevc)
	}
	// sps_temporal_id_nesting_flag
	if _, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}

	if err = parseProfileTierLevel(&br, maxSubLayersMinus1, ctx); err != nil {
		return err
	}

	// sps_seq_parameter_set_id
	if _, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if ctx.ChromaFormatIdc, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if ctx.ChromaFormatIdc > 3 {
		return nazaerrors.Wrap(base.ErrHevc)
	}
	if ctx.ChromaFormatIdc == 3 {
		// separate_colour_plane_flag
		if _, err = br.ReadBits8(1); err != nil {
			return nazaerrors.Wrap(err)
		}
	}
	if ctx.Width, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if ctx.Height, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}

	conformanceWindow, err := br.ReadBits8(1)
	if err != nil {
		return nazaerrors.Wrap(err)
	}
	if conformanceWindow == 1 {
		var offsets [4]uint32 // left, right, top, bottom
		for i := range offsets {
			if offsets[i], err = br.ReadGolomb(); err != nil {
				return nazaerrors.Wrap(err)
			}
		}
		subWidthC, subHeightC := uint32(1), uint32(1)
		switch ctx.ChromaFormatIdc {
		case 1:
			subWidthC, subHeightC = 2, 2
		case 2:
			subWidthC = 2
		}
		cropX := (offsets[0] + offsets[1]) * subWidthC
		cropY := (offsets[2] + offsets[3]) * subHeightC
		if cropX < ctx.Width {
			ctx.Width -= cropX
		}
		if cropY < ctx.Height {
			ctx.Height -= cropY
		}
	}
	return nil
}

func parseProfileTierLevel(br *nazabits.BitReader, maxSubLayersMinus1 uint8, ctx *Context) error {
	var err error
	if ctx.GeneralProfileSpace, err = br.ReadBits8(2); err != nil {
		return nazaerrors.Wrap(err)
	}
	if ctx.GeneralTierFlag, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if ctx.GeneralProfileIdc, err = br.ReadBits8(5); err != nil {
		return nazaerrors.Wrap(err)
	}
	// general_profile_compatibility_flag[32]
	if _, err = br.ReadBits32(32); err != nil {
		return nazaerrors.Wrap(err)
	}
	progressive, err := br.ReadBits8(1)
	if err != nil {
		return nazaerrors.Wrap(err)
	}
	interlaced, err := br.ReadBits8(1)
	if err != nil {
		return nazaerrors.Wrap(err)
	}
	ctx.Interlaced = interlaced == 1 && progressive == 0
	// non_packed_constraint_flag, frame_only_constraint_flag, reserved_zero_44bits
	if err = br.SkipBits(46); err != nil {
		return nazaerrors.Wrap(err)
	}
	if ctx.GeneralLevelIdc, err = br.ReadBits8(8); err != nil {
		return nazaerrors.Wrap(err)
	}

	var profilePresent, levelPresent [maxSubLayers]uint8
	for i := uint8(0); i < maxSubLayersMinus1; i++ {
		if profilePresent[i], err = br.ReadBits8(1); err != nil {
			return nazaerrors.Wrap(err)
		}
		if levelPresent[i], err = br.ReadBits8(1); err != nil {
			return nazaerrors.Wrap(err)
		}
	}
	if maxSubLayersMinus1 > 0 {
		for i := maxSubLayersMinus1; i < 8; i++ {
			// reserved_zero_2bits
			if _, err = br.ReadBits8(2); err != nil {
				return nazaerrors.Wrap(err)
			}
		}
	}
	for i := uint8(0); i < maxSubLayersMinus1; i++ {
		if profilePresent[i] == 1 {
			// sub_layer_profile_space ~ sub_layer_reserved_zero_44bits
			if err = br.SkipBits(88); err != nil {
				return nazaerrors.Wrap(err)
			}
		}
		if levelPresent[i] == 1 {
			if _, err = br.ReadBits8(8); err != nil {
				return nazaerrors.Wrap(err)
			}
		}
	}
	return nil
}
