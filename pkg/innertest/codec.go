// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package innertest

import (
	mathbits "math/bits"

	"github.com/q191201771/naza/pkg/nazabits"

	"github.com/q191201771/tsdemux/pkg/aac"
)

// bitBuilder 在nazabits.BitWriter上记录写入的位数，并提供golomb编码
type bitBuilder struct {
	buf  []byte
	bw   nazabits.BitWriter
	nbit int
}

func newBitBuilder(size int) *bitBuilder {
	b := &bitBuilder{buf: make([]byte, size)}
	b.bw = nazabits.NewBitWriter(b.buf)
	return b
}

func (b *bitBuilder) u(n int, v uint32) *bitBuilder {
	for i := n - 1; i >= 0; i-- {
		b.bw.WriteBit(uint8(v>>uint(i)) & 1)
		b.nbit++
	}
	return b
}

func (b *bitBuilder) ue(v uint32) *bitBuilder {
	x := v + 1
	n := mathbits.Len32(x)
	b.u(n-1, 0)
	return b.u(n, x)
}

// rbspTrailing rbsp_stop_one_bit加字节对齐
func (b *bitBuilder) rbspTrailing() []byte {
	b.u(1, 1)
	for b.nbit%8 != 0 {
		b.u(1, 0)
	}
	return b.buf[:b.nbit/8]
}

// RbspToEbsp 加入防竞争字节
func RbspToEbsp(rbsp []byte) []byte {
	out := make([]byte, 0, len(rbsp)+len(rbsp)/2)
	zeros := 0
	for _, v := range rbsp {
		if zeros >= 2 && v <= 3 {
			out = append(out, 0x03)
			zeros = 0
		}
		out = append(out, v)
		if v == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// ---------------------------------------------------------------------------------------------------------------------

const (
	AvcWidth          = 1280
	AvcHeight         = 720
	AvcNumUnitsInTick = 1001
	AvcTimeScale      = 60000

	// AvcFrameDuration 90000 * 2 * 1001 / 60000
	AvcFrameDuration = 3003
)

// AvcSps baseline profile，AvcWidth x AvcHeight，带VUI timing info。返回rbsp，包含nalu header
func AvcSps() []byte {
	b := newBitBuilder(64)
	b.u(8, 0x67)
	b.u(8, 66) // profile_idc
	b.u(8, 0)  // constraint flags
	b.u(8, 31) // level_idc
	b.ue(0)    // seq_parameter_set_id
	b.ue(0)    // log2_max_frame_num_minus4
	b.ue(2)    // pic_order_cnt_type
	b.ue(1)    // num_ref_frames
	b.u(1, 0)  // gaps_in_frame_num_value_allowed_flag
	b.ue(AvcWidth/16 - 1)
	b.ue(AvcHeight/16 - 1)
	b.u(1, 1) // frame_mbs_only_flag
	b.u(1, 1) // direct_8x8_inference_flag
	b.u(1, 0) // frame_cropping_flag
	b.u(1, 1) // vui_parameters_present_flag

	b.u(1, 1) // aspect_ratio_info_present_flag
	b.u(8, 1) // 1:1
	b.u(1, 0) // overscan_info_present_flag
	b.u(1, 0) // video_signal_type_present_flag
	b.u(1, 0) // chroma_loc_info_present_flag
	b.u(1, 1) // timing_info_present_flag
	b.u(32, AvcNumUnitsInTick)
	b.u(32, AvcTimeScale)
	b.u(1, 1) // fixed_frame_rate_flag
	b.u(1, 0) // nal_hrd_parameters_present_flag
	b.u(1, 0) // vcl_hrd_parameters_present_flag
	b.u(1, 0) // pic_struct_present_flag
	b.u(1, 0) // bitstream_restriction_flag
	return b.rbspTrailing()
}

// AvcHighSps high profile，1920x1080隔行，poc type 0，帧裁剪，无VUI
func AvcHighSps() []byte {
	b := newBitBuilder(64)
	b.u(8, 0x67)
	b.u(8, 100) // profile_idc
	b.u(8, 0)
	b.u(8, 40)
	b.ue(0)       // seq_parameter_set_id
	b.ue(1)       // chroma_format_idc
	b.ue(0).ue(0) // bit_depth_luma_minus8, bit_depth_chroma_minus8
	b.u(1, 0)     // qpprime_y_zero_transform_bypass_flag
	b.u(1, 0)     // seq_scaling_matrix_present_flag
	b.ue(0)       // log2_max_frame_num_minus4
	b.ue(0)       // pic_order_cnt_type
	b.ue(2)       // log2_max_pic_order_cnt_lsb_minus4
	b.ue(4)       // num_ref_frames
	b.u(1, 0)
	b.ue(1920/16 - 1)
	b.ue(1088/32 - 1) // 场的map unit
	b.u(1, 0)         // frame_mbs_only_flag
	b.u(1, 1)         // mb_adaptive_frame_field_flag
	b.u(1, 1)         // direct_8x8_inference_flag
	b.u(1, 1)         // frame_cropping_flag
	b.ue(0).ue(0).ue(0).ue(2)
	b.u(1, 0) // vui_parameters_present_flag
	return b.rbspTrailing()
}

var avcPps = []byte{0x68, 0xCE, 0x3C, 0x80}

// AvcAccessUnit Annexb格式的一帧：AUD，关键帧带SPS/PPS，一个slice
//
// slice header中 first_mb_in_slice=0，slice_type=7(I)或5(P)
//
func AvcAccessUnit(key bool, sliceSize int) []byte {
	startCode := []byte{0, 0, 0, 1}
	var out []byte
	out = append(out, startCode...)
	out = append(out, 0x09, 0xF0)
	if key {
		out = append(out, startCode...)
		out = append(out, RbspToEbsp(AvcSps())...)
		out = append(out, startCode...)
		out = append(out, avcPps...)
		out = append(out, startCode...)
		out = append(out, 0x65, 0x88)
	} else {
		out = append(out, startCode...)
		out = append(out, 0x41, 0x9A)
	}
	for i := 0; i < sliceSize; i++ {
		out = append(out, uint8(0x80+i%0x70))
	}
	return out
}

// HevcSps main profile 1920x1080（编码1088，conformance window裁掉8行）。返回rbsp，包含nalu header
func HevcSps() []byte {
	b := newBitBuilder(64)
	b.u(8, 0x42).u(8, 0x01) // nal_unit_type=33
	b.u(4, 0)               // sps_video_parameter_set_id
	b.u(3, 0)               // sps_max_sub_layers_minus1
	b.u(1, 1)               // sps_temporal_id_nesting_flag

	b.u(2, 0).u(1, 0).u(5, 1) // general_profile_space, tier, profile_idc
	b.u(32, 0x60000000)       // general_profile_compatibility_flag
	b.u(1, 1).u(1, 0)         // progressive, interlaced
	b.u(1, 0).u(1, 1)         // non_packed, frame_only
	b.u(32, 0).u(12, 0)       // reserved_zero_44bits
	b.u(8, 93)                // general_level_idc

	b.ue(0) // sps_seq_parameter_set_id
	b.ue(1) // chroma_format_idc
	b.ue(1920)
	b.ue(1088)
	b.u(1, 1) // conformance_window_flag
	b.ue(0).ue(0).ue(0).ue(4)
	return b.rbspTrailing()
}

// HevcAccessUnit Annexb格式：VPS位置不检查，只放SPS和一个slice
func HevcAccessUnit(sliceSize int) []byte {
	startCode := []byte{0, 0, 0, 1}
	var out []byte
	out = append(out, startCode...)
	out = append(out, RbspToEbsp(HevcSps())...)
	out = append(out, startCode...)
	out = append(out, 0x26, 0x01) // IDR_W_RADL
	for i := 0; i < sliceSize; i++ {
		out = append(out, uint8(0x80+i%0x70))
	}
	return out
}

// ---------------------------------------------------------------------------------------------------------------------

const (
	AacSampleRate = 48000
	AacChannels   = 2

	// AacFrameDuration 1024 * 90000 / 48000
	AacFrameDuration = 1920
)

// AdtsFrames `n`个连续的ADTS帧，AAC LC 48000Hz 双声道
func AdtsFrames(n int, rawSize int) []byte {
	asc := aac.AscContext{
		AudioObjectType:        2,
		SamplingFrequencyIndex: aac.AscSamplingFrequencyIndex48000,
		ChannelConfiguration:   AacChannels,
	}
	var out []byte
	for i := 0; i < n; i++ {
		frame := make([]byte, aac.AdtsHeaderLength+rawSize)
		_ = asc.PackToAdtsHeader(frame, rawSize)
		for j := aac.AdtsHeaderLength; j < len(frame); j++ {
			frame[j] = uint8(j)
		}
		out = append(out, frame...)
	}
	return out
}

// ---------------------------------------------------------------------------------------------------------------------

const (
	// Ac3FrameSize 48kHz，frmsizecod=8（64kbps），128个16位字
	Ac3FrameSize     = 256
	Ac3FrameDuration = 2880

	// Eac3FrameSize frmsiz=383
	Eac3FrameSize     = 768
	Eac3FrameDuration = 2880
)

// Ac3Frame 48kHz，64kbps，2/0声道，无lfe
func Ac3Frame() []byte {
	frame := make([]byte, Ac3FrameSize)
	frame[0], frame[1] = 0x0B, 0x77
	frame[4] = 0<<6 | 8 // fscod, frmsizecod
	frame[5] = 8 << 3   // bsid, bsmod
	frame[6] = 2 << 5   // acmod, dsurmod, lfeon
	return frame
}

// Eac3Frame 48kHz，6个audio block，2/0声道加lfe
func Eac3Frame() []byte {
	frame := make([]byte, Eac3FrameSize)
	frame[0], frame[1] = 0x0B, 0x77
	frame[2] = 0x01                   // strmtyp, substreamid, frmsiz高3位
	frame[3] = 0x7F                   // frmsiz低8位
	frame[4] = 0<<6 | 3<<4 | 2<<1 | 1 // fscod, numblkscod, acmod, lfeon
	frame[5] = 16 << 3                // bsid
	return frame
}
