// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

import (
	"github.com/q191201771/naza/pkg/nazabits"
	"github.com/q191201771/naza/pkg/nazaerrors"

	"github.com/q191201771/tsdemux/pkg/base"
)

// Sps ISO-14496-10.pdf <7.3.2.1.1 Sequence parameter set data syntax>，只保留用得到的字段
type Sps struct {
	ProfileIdc uint8
	LevelIdc   uint8
	SpsId      uint32

	ChromaFormatIdc uint32
	BitDepthLuma    uint32
	BitDepthChroma  uint32

	Log2MaxFrameNumMinus4       uint32
	PicOrderCntType             uint32
	NumRefFrames                uint32
	PicWidthInMbsMinusOne       uint32
	PicHeightInMapUnitsMinusOne uint32
	FrameMbsOnlyFlag            uint8
	FrameCropLeftOffset         uint32
	FrameCropRightOffset        uint32
	FrameCropTopOffset          uint32
	FrameCropBottomOffset       uint32

	Vui Vui
}

// Vui <Annex E.1.1 VUI parameters syntax>，解析到timing info为止
type Vui struct {
	AspectRatioIdc    uint8
	SarWidth          uint16
	SarHeight         uint16
	TimingInfoPresent bool
	NumUnitsInTick    uint32
	TimeScale         uint32
	FixedFrameRate    bool
}

// Context 从SPS中计算出来的信息
type Context struct {
	Profile    uint8
	Level      uint8
	Width      uint32
	Height     uint32
	Interlaced bool
	Aspect     float64 // 显示宽高比，无法计算时为0

	// 帧率为 FpsRate/FpsScale，FpsScale为0表示没有timing info
	FpsRate  uint32
	FpsScale uint32
}

// FrameDuration 每帧时长，90kHz，没有timing info时为0
func (ctx *Context) FrameDuration() int64 {
	if ctx.FpsRate == 0 || ctx.FpsScale == 0 {
		return 0
	}
	return 90000 * int64(ctx.FpsScale) / int64(ctx.FpsRate)
}

// <Table E-1 Meaning of sample aspect ratio indicator>
var sarTable = [][2]uint16{
	{0, 1}, {1, 1}, {12, 11}, {10, 11}, {16, 11}, {40, 33}, {24, 11}, {20, 11},
	{32, 11}, {80, 33}, {18, 11}, {15, 11}, {64, 33}, {160, 99}, {4, 3}, {3, 2}, {2, 1},
}

const aspectRatioIdcExtendedSar = 255

// ParseSps
//
// @param payload: sps nalu，包含1字节nalu header，已经去掉防竞争字节
//
func ParseSps(payload []byte, ctx *Context) error {
	var sps Sps
	br := nazabits.NewBitReader(payload)
	if err := parseSpsBasic(&br, &sps); err != nil {
		return err
	}
	ctx.Profile = sps.ProfileIdc
	ctx.Level = sps.LevelIdc

	if err := parseSpsBeta(&br, &sps); err != nil {
		return err
	}

	cropUnitX := uint32(1)
	cropUnitY := 2 - uint32(sps.FrameMbsOnlyFlag)
	switch sps.ChromaFormatIdc {
	case 1:
		cropUnitX = 2
		cropUnitY *= 2
	case 2:
		cropUnitX = 2
	}
	ctx.Width = (sps.PicWidthInMbsMinusOne+1)*16 - (sps.FrameCropLeftOffset+sps.FrameCropRightOffset)*cropUnitX
	ctx.Height = (2-uint32(sps.FrameMbsOnlyFlag))*(sps.PicHeightInMapUnitsMinusOne+1)*16 -
		(sps.FrameCropTopOffset+sps.FrameCropBottomOffset)*cropUnitY
	ctx.Interlaced = sps.FrameMbsOnlyFlag == 0

	if sps.Vui.SarWidth != 0 && sps.Vui.SarHeight != 0 && ctx.Height != 0 {
		ctx.Aspect = float64(ctx.Width) * float64(sps.Vui.SarWidth) / (float64(ctx.Height) * float64(sps.Vui.SarHeight))
	}
	if sps.Vui.TimingInfoPresent && sps.Vui.NumUnitsInTick != 0 && sps.Vui.TimeScale != 0 {
		// 一帧两场
		ctx.FpsRate = sps.Vui.TimeScale
		ctx.FpsScale = 2 * sps.Vui.NumUnitsInTick
	}
	return nil
}

func parseSpsBasic(br *nazabits.BitReader, sps *Sps) error {
	var err error
	// nal header
	if _, err = br.ReadBits8(8); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.ProfileIdc, err = br.ReadBits8(8); err != nil {
		return nazaerrors.Wrap(err)
	}
	// constraint_set0_flag ~ constraint_set5_flag, reserved_zero_2bits
	if _, err = br.ReadBits8(8); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.LevelIdc, err = br.ReadBits8(8); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.SpsId, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.SpsId >= 32 {
		return nazaerrors.Wrap(base.ErrAvc)
	}
	return nil
}

func isHighProfile(profileIdc uint8) bool {
	switch profileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		return true
	}
	return false
}

func parseSpsBeta(br *nazabits.BitReader, sps *Sps) error {
	var err error

	sps.ChromaFormatIdc = 1
	sps.BitDepthLuma = 8
	sps.BitDepthChroma = 8

	if isHighProfile(sps.ProfileIdc) {
		if sps.ChromaFormatIdc, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		if sps.ChromaFormatIdc > 3 {
			return nazaerrors.Wrap(base.ErrAvc)
		}
		if sps.ChromaFormatIdc == 3 {
			// separate_colour_plane_flag
			if _, err = br.ReadBits8(1); err != nil {
				return nazaerrors.Wrap(err)
			}
		}
		if sps.BitDepthLuma, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		sps.BitDepthLuma += 8
		if sps.BitDepthChroma, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		sps.BitDepthChroma += 8
		// qpprime_y_zero_transform_bypass_flag
		if _, err = br.ReadBits8(1); err != nil {
			return nazaerrors.Wrap(err)
		}

		flag, err := br.ReadBits8(1)
		if err != nil {
			return nazaerrors.Wrap(err)
		}
		if flag == 1 {
			n := 8
			if sps.ChromaFormatIdc == 3 {
				n = 12
			}
			for i := 0; i < n; i++ {
				present, err := br.ReadBits8(1)
				if err != nil {
					return nazaerrors.Wrap(err)
				}
				if present == 0 {
					continue
				}
				size := 16
				if i >= 6 {
					size = 64
				}
				if err = skipScalingList(br, size); err != nil {
					return err
				}
			}
		}
	}

	if sps.Log2MaxFrameNumMinus4, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.Log2MaxFrameNumMinus4 > 12 {
		return nazaerrors.Wrap(base.ErrAvc)
	}
	if sps.PicOrderCntType, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}

	switch sps.PicOrderCntType {
	case 0:
		// log2_max_pic_order_cnt_lsb_minus4
		if _, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
	case 1:
		// delta_pic_order_always_zero_flag
		if _, err = br.ReadBits8(1); err != nil {
			return nazaerrors.Wrap(err)
		}
		// offset_for_non_ref_pic, offset_for_top_to_bottom_field
		if _, err = readSignedGolomb(br); err != nil {
			return err
		}
		if _, err = readSignedGolomb(br); err != nil {
			return err
		}
		cycle, err := br.ReadGolomb()
		if err != nil {
			return nazaerrors.Wrap(err)
		}
		if cycle > 255 {
			return nazaerrors.Wrap(base.ErrAvc)
		}
		for i := uint32(0); i < cycle; i++ {
			if _, err = readSignedGolomb(br); err != nil {
				return err
			}
		}
	case 2:
		// noop
	default:
		return nazaerrors.Wrap(base.ErrAvc)
	}

	if sps.NumRefFrames, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	// gaps_in_frame_num_value_allowed_flag
	if _, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.PicWidthInMbsMinusOne, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.PicHeightInMapUnitsMinusOne, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.FrameMbsOnlyFlag, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.FrameMbsOnlyFlag == 0 {
		// mb_adaptive_frame_field_flag
		if _, err = br.ReadBits8(1); err != nil {
			return nazaerrors.Wrap(err)
		}
	}
	// direct_8x8_inference_flag
	if _, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}

	cropping, err := br.ReadBits8(1)
	if err != nil {
		return nazaerrors.Wrap(err)
	}
	if cropping == 1 {
		if sps.FrameCropLeftOffset, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		if sps.FrameCropRightOffset, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		if sps.FrameCropTopOffset, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		if sps.FrameCropBottomOffset, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
	}

	vuiPresent, err := br.ReadBits8(1)
	if err != nil {
		return nazaerrors.Wrap(err)
	}
	if vuiPresent == 1 {
		if err = parseVui(br, &sps.Vui); err != nil {
			// vui不完整时，宽高依然可用
			Log.Debugf("parse vui failed. err=%+v", err)
		}
	}
	return nil
}

func parseVui(br *nazabits.BitReader, vui *Vui) error {
	var err error

	aspectPresent, err := br.ReadBits8(1)
	if err != nil {
		return nazaerrors.Wrap(err)
	}
	if aspectPresent == 1 {
		if vui.AspectRatioIdc, err = br.ReadBits8(8); err != nil {
			return nazaerrors.Wrap(err)
		}
		if vui.AspectRatioIdc == aspectRatioIdcExtendedSar {
			if vui.SarWidth, err = br.ReadBits16(16); err != nil {
				return nazaerrors.Wrap(err)
			}
			if vui.SarHeight, err = br.ReadBits16(16); err != nil {
				return nazaerrors.Wrap(err)
			}
		} else if int(vui.AspectRatioIdc) < len(sarTable) {
			vui.SarWidth = sarTable[vui.AspectRatioIdc][0]
			vui.SarHeight = sarTable[vui.AspectRatioIdc][1]
		}
	}

	overscanPresent, err := br.ReadBits8(1)
	if err != nil {
		return nazaerrors.Wrap(err)
	}
	if overscanPresent == 1 {
		if _, err = br.ReadBits8(1); err != nil {
			return nazaerrors.Wrap(err)
		}
	}

	signalTypePresent, err := br.ReadBits8(1)
	if err != nil {
		return nazaerrors.Wrap(err)
	}
	if signalTypePresent == 1 {
		// video_format, video_full_range_flag
		if _, err = br.ReadBits8(4); err != nil {
			return nazaerrors.Wrap(err)
		}
		colourPresent, err := br.ReadBits8(1)
		if err != nil {
			return nazaerrors.Wrap(err)
		}
		if colourPresent == 1 {
			// colour_primaries, transfer_characteristics, matrix_coefficients
			if _, err = br.ReadBytes(3); err != nil {
				return nazaerrors.Wrap(err)
			}
		}
	}

	chromaLocPresent, err := br.ReadBits8(1)
	if err != nil {
		return nazaerrors.Wrap(err)
	}
	if chromaLocPresent == 1 {
		if _, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		if _, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
	}

	timingPresent, err := br.ReadBits8(1)
	if err != nil {
		return nazaerrors.Wrap(err)
	}
	if timingPresent == 1 {
		if vui.NumUnitsInTick, err = br.ReadBits32(32); err != nil {
			return nazaerrors.Wrap(err)
		}
		if vui.TimeScale, err = br.ReadBits32(32); err != nil {
			return nazaerrors.Wrap(err)
		}
		fixed, err := br.ReadBits8(1)
		if err != nil {
			return nazaerrors.Wrap(err)
		}
		vui.TimingInfoPresent = true
		vui.FixedFrameRate = fixed == 1
	}
	return nil
}

func skipScalingList(br *nazabits.BitReader, size int) error {
	last, next := int32(8), int32(8)
	for j := 0; j < size; j++ {
		if next != 0 {
			delta, err := readSignedGolomb(br)
			if err != nil {
				return err
			}
			next = (last + delta + 256) % 256
		}
		if next != 0 {
			last = next
		}
	}
	return nil
}

// readSignedGolomb se(v)
func readSignedGolomb(br *nazabits.BitReader) (int32, error) {
	k, err := br.ReadGolomb()
	if err != nil {
		return 0, nazaerrors.Wrap(err)
	}
	if k&1 == 1 {
		return int32((k + 1) / 2), nil
	}
	return -int32(k / 2), nil
}
