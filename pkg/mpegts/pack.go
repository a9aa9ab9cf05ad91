// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

// Frame 帧数据，用于打包成mpegts格式的数据。主要用于构造测试流
type Frame struct {
	Pts int64 // 90kHz
	Dts int64
	Cc  uint8 // continuity_counter of TS Header

	// PID of PES Header
	Pid uint16

	// stream_id of PES Header
	Sid uint8

	// 为true时，首个packet带上random_access_indicator以及PCR（取值为Dts*300）
	Key bool

	// es数据，比如AAC为ADTS帧，AVC为Annexb
	Raw []byte
}

// Pack 将一帧打包成多个188字节的TS packet
//
// 注意，内部会增加 Frame.Cc 的值.
//
// @return: 内存块为独立申请，调度结束后，内部不再持有
//
func (frame *Frame) Pack() []byte {
	bufLen := len(frame.Raw) * 2 // 预分配一块足够大的内存
	if bufLen < 1024 {
		bufLen = 1024
	}
	buf := make([]byte, bufLen)

	lpos := 0              // 当前输入帧的处理位置
	rpos := len(frame.Raw) // 当前输入帧大小
	first := true          // 是否为帧的首个packet的标准
	packetPosAtBuf := 0    // 当前输出packet相对于整个输出内存块的位置

	for first || lpos != rpos {
		if packetPosAtBuf+TsPacketSize > len(buf) {
			newBuf := make([]byte, packetPosAtBuf+TsPacketSize)
			copy(newBuf, buf)
			buf = newBuf
		}

		packet := buf[packetPosAtBuf : packetPosAtBuf+TsPacketSize] // 当前输出packet
		wpos := 0                                                   // 当前输出packet的写入位置
		packetPosAtBuf += TsPacketSize

		h := TsPacketHeader{
			Sync:       syncByte,
			Pid:        frame.Pid,
			Adaptation: AdaptationFieldControlNo,
			Cc:         frame.Cc & 0x0F,
		}
		if first {
			h.PayloadUnitStart = 1
		}
		h.Pack(packet)
		frame.Cc++
		wpos += 4

		if first {
			if frame.Key {
				// 关键帧的首个packet需要添加Adaptation
				// -----Adaptation-----------------------
				// adaptation_field_length              7
				// random_access_indicator              1
				// PCR_flag                             1
				// program_clock_reference_base
				// reserved
				// program_clock_reference_extension
				// --------------------------------------
				packet[3] |= 0x20
				packet[4] = 7
				packet[5] = 0x50
				PackPcr(packet[6:], frame.Dts*300)
				wpos += 8
			}

			// 帧的首个packet需要添加PES Header
			packet[wpos] = 0x00
			packet[wpos+1] = 0x00
			packet[wpos+2] = 0x01
			packet[wpos+3] = frame.Sid
			wpos += 4

			headerSize := uint8(5)
			flags := uint8(0x80)
			if frame.Dts != frame.Pts {
				headerSize += 5
				flags |= 0x40
			}

			pesSize := rpos + int(headerSize) + 3 // PES Header剩余3字节 + PTS/DTS长度 + 整个帧的长度
			if pesSize > 0xFFFF {
				pesSize = 0
			}

			packet[wpos] = uint8(pesSize >> 8)
			packet[wpos+1] = uint8(pesSize & 0xFF)
			packet[wpos+2] = 0x80       // 除了'10'，其他字段都是0
			packet[wpos+3] = flags      // PTS_DTS_flags
			packet[wpos+4] = headerSize // PES_header_data_length
			wpos += 5

			EncodePts(packet[wpos:], flags>>6, frame.Pts)
			wpos += 5
			if frame.Pts != frame.Dts {
				EncodePts(packet[wpos:], 1, frame.Dts)
				wpos += 5
			}

			first = false
		}

		bodySize := TsPacketSize - wpos // 当前TS packet，可写入大小
		inSize := rpos - lpos           // 整个帧剩余待打包大小

		if bodySize <= inSize {
			copy(packet[wpos:], frame.Raw[lpos:lpos+bodySize])
			lpos += bodySize
			continue
		}

		// 当前packet可以写完这个帧，并且还有空闲空间
		// 此时，真实数据挪最后，中间用0xFF填充到Adaptation中
		stuffSize := bodySize - inSize
		if packet[3]&0x20 != 0 {
			// 已经有Adaptation，TS Header 4字节 + adaptation_field_length 1字节 + adaptation内容
			base := int(5 + packet[4])
			if wpos > base {
				copy(packet[base+stuffSize:], packet[base:wpos])
			}
			wpos += stuffSize

			packet[4] += uint8(stuffSize)
			for i := 0; i < stuffSize; i++ {
				packet[base+i] = 0xFF
			}
		} else {
			packet[3] |= 0x20

			base := 4
			if wpos > base {
				copy(packet[base+stuffSize:], packet[base:wpos])
			}
			wpos += stuffSize

			packet[4] = uint8(stuffSize - 1)
			if stuffSize >= 2 {
				packet[5] = 0
				for i := 0; i < stuffSize-2; i++ {
					packet[6+i] = 0xFF
				}
			}
		}

		copy(packet[wpos:], frame.Raw[lpos:lpos+inSize])
		lpos = rpos
	}

	return buf[:packetPosAtBuf]
}

// PackSection 将一个完整的PSI section（从table_id开始）打包成TS packet
//
// 首个packet带pointer_field（值为0），最后一个packet尾部用0xFF填充
//
func PackSection(pid uint16, cc *uint8, section []byte) []byte {
	var out []byte
	first := true
	for first || len(section) > 0 {
		packet := make([]byte, TsPacketSize)
		h := TsPacketHeader{
			Sync:       syncByte,
			Pid:        pid,
			Adaptation: AdaptationFieldControlNo,
			Cc:         *cc & 0x0F,
		}
		*cc++
		wpos := 4
		if first {
			h.PayloadUnitStart = 1
			packet[wpos] = 0 // pointer_field
			wpos++
			first = false
		}
		h.Pack(packet)

		n := copy(packet[wpos:], section)
		section = section[n:]
		for i := wpos + n; i < TsPacketSize; i++ {
			packet[i] = 0xFF
		}
		out = append(out, packet...)
	}
	return out
}

// PackPcr 6字节，base 33位 + reserved 6位 + extension 9位
func PackPcr(out []byte, pcr int64) {
	base := uint64(pcr/300) & uint64(PtsMask)
	ext := uint64(pcr % 300)
	out[0] = uint8(base >> 25)
	out[1] = uint8(base >> 17)
	out[2] = uint8(base >> 9)
	out[3] = uint8(base >> 1)
	out[4] = uint8(base<<7) | 0x7e | uint8(ext>>8)
	out[5] = uint8(ext)
}
