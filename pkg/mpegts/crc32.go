// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import "github.com/q191201771/naza/pkg/bele"

// PSI section使用的CRC_32，<iso13818-1.pdf> <Annex B>
//
// 多项式0x04C11DB7，不反转输入输出，初始值0xFFFFFFFF，不异或输出。
// 和hash/crc32的IEEE（反转形式）不是同一个算法
//
var crc32Table [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ 0x04C11DB7
			} else {
				crc <<= 1
			}
		}
		crc32Table[i] = crc
	}
}

func CalcCrc32(crc uint32, buffer []byte) uint32 {
	for _, b := range buffer {
		crc = (crc << 8) ^ crc32Table[byte(crc>>24)^b]
	}
	return crc
}

// CheckSectionCrc32 校验一个完整section（从table_id开始，包含尾部4字节CRC_32）
func CheckSectionCrc32(section []byte) bool {
	if len(section) < 4 {
		return false
	}
	n := len(section) - 4
	return CalcCrc32(0xFFFFFFFF, section[:n]) == bele.BeUint32(section[n:])
}
