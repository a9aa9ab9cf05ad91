// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package h2645

// 无特殊说明的函数则同时支持h264和h265两种格式

var (
	NaluStartCode3 = []byte{0x0, 0x0, 0x1}
	NaluStartCode4 = []byte{0x0, 0x0, 0x0, 0x1}
)

const (
	H264NaluTypeSlice    uint8 = 1
	H264NaluTypeIdrSlice uint8 = 5
	H264NaluTypeSei      uint8 = 6
	H264NaluTypeSps      uint8 = 7
	H264NaluTypePps      uint8 = 8
	H264NaluTypeAud      uint8 = 9  // Access Unit Delimiter
	H264NaluTypeFd       uint8 = 12 // Filler Data
)

// ISO_IEC_23008-2_2013.pdf
// Table 7-1 – NAL unit type codes and NAL unit type classes
const (
	H265NaluTypeSliceTrailN uint8 = 0 // 0x0
	H265NaluTypeSliceTrailR uint8 = 1 // 0x01

	H265NaluTypeSliceBlaWlp uint8 = 16 // 0x10
	H265NaluTypeSliceIdr    uint8 = 19 // 0x13
	H265NaluTypeSliceIdrNlp uint8 = 20 // 0x14
	H265NaluTypeSliceCranut uint8 = 21 // 0x15

	H265NaluTypeVps       uint8 = 32 // 0x20
	H265NaluTypeSps       uint8 = 33 // 0x21
	H265NaluTypePps       uint8 = 34 // 0x22
	H265NaluTypeAud       uint8 = 35 // 0x23
	H265NaluTypeSei       uint8 = 39 // 0x27
	H265NaluTypeSeiSuffix uint8 = 40 // 0x28
)

func ParseNaluType(isH264 bool, v uint8) uint8 {
	if isH264 {
		return v & 0x1f
	}
	return (v & 0x7E) >> 1
}

// IterateNaluStartCode 从`start`位置开始找下一个起始码
//
// @return pos:    起始码后面第一个字节的位置，找不到时为-1
// @return length: 起始码的长度，3或4
//
func IterateNaluStartCode(nalu []byte, start int) (pos, length int) {
	if nalu == nil || start >= len(nalu) {
		return -1, -1
	}
	count := 0
	for i := range nalu[start:] {
		switch nalu[start+i] {
		case 0:
			count++
		case 1:
			if count >= 2 {
				if count > 3 {
					count = 3
				}
				return start + i + 1, count + 1
			}
			count = 0
		default:
			count = 0
		}
	}
	return -1, -1
}

// IterateNaluAnnexb 遍历Annexb格式的nalu流，`handler`的参数不包含起始码
//
// 第一个起始码之前的数据被忽略
//
func IterateNaluAnnexb(nals []byte, handler func(nal []byte)) {
	pos, _ := IterateNaluStartCode(nals, 0)
	for pos != -1 {
		next, length := IterateNaluStartCode(nals, pos)
		if next == -1 {
			if pos < len(nals) {
				handler(nals[pos:])
			}
			return
		}
		// 起始码的前导0可能属于上一个nalu的trailing_zero，统一去掉
		end := next - length
		for end > pos && nals[end-1] == 0 {
			end--
		}
		if end > pos {
			handler(nals[pos:end])
		}
		pos = next
	}
}

// EbspToRbsp 去掉防竞争字节，即 0x00 0x00 0x03 中的0x03
//
// @return: 内存块为独立新申请
//
func EbspToRbsp(b []byte) []byte {
	out := make([]byte, 0, len(b))
	zeros := 0
	for _, v := range b {
		if zeros >= 2 && v == 0x03 {
			zeros = 0
			continue
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
