// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"fmt"
	"io"

	"github.com/q191201771/tsdemux/pkg/base"
)

// AvReader 按绝对位置读取输入数据
//
// 同步器可能会重复读取相同的位置，或者读取比上一次更靠前的位置（比如重新同步时）
//
type AvReader interface {
	// ReadAv 读取从`pos`开始的`n`字节
	//
	// 要么返回完整的`n`字节，要么返回错误，不会返回不完整的数据。
	// 输入数据不足时返回io.EOF，其他读取失败返回包装了base.ErrIo的错误。
	// 返回的内存块在下一次调用ReadAv前有效
	//
	ReadAv(pos uint64, n int) ([]byte, error)
}

// ---------------------------------------------------------------------------------------------------------------------

// BytesReader 内存中的完整输入
type BytesReader struct {
	b []byte
}

func NewBytesReader(b []byte) *BytesReader {
	return &BytesReader{b: b}
}

func (r *BytesReader) ReadAv(pos uint64, n int) ([]byte, error) {
	if pos > uint64(len(r.b)) || uint64(len(r.b))-pos < uint64(n) {
		return nil, io.EOF
	}
	return r.b[pos : pos+uint64(n)], nil
}

// ---------------------------------------------------------------------------------------------------------------------

// BufferedReader 在io.Reader上提供一个滑动窗口
//
// 窗口之后不远的位置直接向后读入窗口，窗口头部保留一段已读过的数据，满足小范围的回退。
// 底层reader实现了io.Seeker时，窗口之前或者远在窗口之后的位置通过seek读取；
// seek失败（比如stdin是管道）后不再seek，向后跳过的数据直接丢弃
//
type BufferedReader struct {
	r        io.Reader
	seeker   io.Seeker
	buf      []byte
	n        int    // buf中有效数据的长度
	winPos   uint64 // buf[0]在输入中的绝对位置
	backSize int
	eof      bool
}

// NewBufferedReader
//
// @param windowSize: 窗口大小，<=0时使用 base.TsAvBufferSize
//
func NewBufferedReader(r io.Reader, windowSize int) *BufferedReader {
	if windowSize <= 0 {
		windowSize = base.TsAvBufferSize
	}
	br := &BufferedReader{
		r:        r,
		buf:      make([]byte, windowSize),
		backSize: windowSize / 4,
	}
	if s, ok := r.(io.Seeker); ok {
		br.seeker = s
	}
	return br
}

func (br *BufferedReader) ReadAv(pos uint64, n int) ([]byte, error) {
	if n > len(br.buf)/2 {
		return nil, base.NewErrBufferOverflow(n, len(br.buf)/2)
	}

	end := br.winPos + uint64(br.n)
	if pos >= br.winPos && pos+uint64(n) <= end {
		off := int(pos - br.winPos)
		return br.buf[off : off+n], nil
	}

	// 窗口之前，或者和窗口末尾的距离超过一个窗口
	if pos < br.winPos || (pos > end && pos-end > uint64(len(br.buf))) {
		if err := br.reposition(pos); err != nil {
			return nil, err
		}
	}

	for {
		off := pos - br.winPos
		if off+uint64(n) <= uint64(br.n) {
			return br.buf[off : off+uint64(n)], nil
		}
		if br.eof {
			return nil, io.EOF
		}

		if off+uint64(n) > uint64(len(br.buf)) {
			// 向前滑动窗口，保留pos之前最多backSize字节。
			// pos在窗口末尾之后时，窗口内的数据全部丢弃
			keep := off
			if keep > uint64(br.backSize) {
				keep = uint64(br.backSize)
			}
			drop := int(off - keep)
			if drop > br.n {
				drop = br.n
			}
			copy(br.buf, br.buf[drop:br.n])
			br.n -= drop
			br.winPos += uint64(drop)
		}

		m, err := br.r.Read(br.buf[br.n:])
		br.n += m
		if err == io.EOF {
			br.eof = true
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w. %s", base.ErrIo, err.Error())
		}
	}
}

// reposition 把窗口移到`pos`，窗口内容被清空
func (br *BufferedReader) reposition(pos uint64) error {
	if br.seeker != nil {
		_, err := br.seeker.Seek(int64(pos), io.SeekStart)
		if err == nil {
			br.winPos = pos
			br.n = 0
			br.eof = false
			return nil
		}
		Log.Warnf("seek failed, fallback to read forward. pos=%d, err=%+v", pos, err)
		br.seeker = nil
	}

	end := br.winPos + uint64(br.n)
	if pos < br.winPos {
		return fmt.Errorf("%w. cannot rewind unseekable input. pos=%d, window=%d", base.ErrIo, pos, br.winPos)
	}
	if pos <= end {
		return nil
	}

	// 跳过窗口之后、pos之前的数据
	skipped, err := io.CopyN(io.Discard, br.r, int64(pos-end))
	br.winPos = end + uint64(skipped)
	br.n = 0
	if err == io.EOF {
		br.eof = true
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("%w. %s", base.ErrIo, err.Error())
	}
	return nil
}
