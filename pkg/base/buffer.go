// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"fmt"
)

const growRoundThreshold = 1048576 // 1MB

// Buffer 先进先出可扩容流式buffer，可直接读写内部切片避免拷贝
//
// 与普通的可扩容buffer不同，Buffer有容量上限，写入后总长度超过上限时返回 ErrBufferOverflow，
// 已写入的内容保持不变。用于PSI section、PES header以及access unit的重组，输入数据中的长度字段不可信，
// 所以不能无限扩容。
//
// 示例
//   读取方式1
//     buf := Bytes()
//     ... // 读取buf的内容
//     Skip(n)
//
//   读取方式2
//     buf := Peek(n)
//
//   写入方式1
//     buf, err := ReserveBytes(n)
//     ... // 向buf中写入内容
//     Flush(n)
//
//   写入方式2
//     n, err := Write(buf)
//
type Buffer struct {
	core   []byte
	rpos   int
	wpos   int
	maxCap int
}

// NewBuffer
//
// @param maxCap: 可读数据的长度上限，<=0 表示不限制
//
func NewBuffer(initCap int, maxCap int) *Buffer {
	if maxCap > 0 && initCap > maxCap {
		initCap = maxCap
	}
	return &Buffer{
		core:   make([]byte, initCap),
		maxCap: maxCap,
	}
}

// ---------------------------------------------------------------------------------------------------------------------

// Bytes Buffer中所有未读数据，不拷贝
//
func (b *Buffer) Bytes() []byte {
	if b.rpos == b.wpos {
		return nil
	}
	return b.core[b.rpos:b.wpos]
}

// Peek 查看指定长度的未读数据，不拷贝，不修改读取位置
//
func (b *Buffer) Peek(n int) []byte {
	if b.rpos == b.wpos {
		return nil
	}
	if b.Len() < n {
		return b.Bytes()
	}
	return b.core[b.rpos : b.rpos+n]
}

// Skip 将前`n`未读数据标记为已读
//
func (b *Buffer) Skip(n int) {
	if n > b.wpos-b.rpos {
		Log.Warnf("[%p] Buffer::Skip too large. n=%d, %s", b, n, b.DebugString())
		b.Reset()
		return
	}
	b.rpos += n
	b.resetIfEmpty()
}

// ---------------------------------------------------------------------------------------------------------------------

// Grow 确保Buffer中至少有`n`大小的空间可写
//
func (b *Buffer) Grow(n int) error {
	if b.maxCap > 0 && b.Len()+n > b.maxCap {
		return NewErrBufferOverflow(b.Len()+n, b.maxCap)
	}

	tail := len(b.core) - b.wpos
	if tail >= n {
		return nil
	}

	if b.rpos+tail >= n {
		// 头部加上尾部空闲空间足够，将可读数据移动到头部
		copy(b.core, b.core[b.rpos:b.wpos])
		b.wpos -= b.rpos
		b.rpos = 0
		return nil
	}

	needed := b.Len() + n
	if needed < growRoundThreshold {
		needed = roundUpPowerOfTwo(needed)
	}
	if b.maxCap > 0 && needed > b.maxCap {
		needed = b.maxCap
	}

	core := make([]byte, needed)
	copy(core, b.core[b.rpos:b.wpos])
	b.core = core
	b.wpos -= b.rpos
	b.rpos = 0
	return nil
}

// WritableBytes 返回当前可写入的字节切片
//
func (b *Buffer) WritableBytes() []byte {
	if len(b.core) == b.wpos {
		return nil
	}
	return b.core[b.wpos:]
}

// ReserveBytes 返回可写入`n`大小的字节切片，如果空闲空间不够，内部会进行扩容
//
func (b *Buffer) ReserveBytes(n int) ([]byte, error) {
	if err := b.Grow(n); err != nil {
		return nil, err
	}
	return b.WritableBytes()[:n], nil
}

// Flush 写入完成，更新写入位置
//
func (b *Buffer) Flush(n int) {
	if len(b.core)-b.wpos < n {
		Log.Warnf("[%p] Buffer::Flush too large. n=%d, %s", b, n, b.DebugString())
		b.wpos = len(b.core)
		return
	}
	b.wpos += n
}

// Write 拷贝。超过容量上限时不写入任何数据
//
func (b *Buffer) Write(p []byte) (n int, err error) {
	if err = b.Grow(len(p)); err != nil {
		return 0, err
	}
	n = copy(b.core[b.wpos:], p)
	b.wpos += n
	return n, nil
}

// ---------------------------------------------------------------------------------------------------------------------

// Reset 重置
//
// 注意，并不会释放内存块
//
func (b *Buffer) Reset() {
	b.rpos = 0
	b.wpos = 0
}

// Len Buffer中还没有读的数据的长度
//
func (b *Buffer) Len() int {
	return b.wpos - b.rpos
}

// Cap 整个Buffer占用的空间
//
func (b *Buffer) Cap() int {
	return cap(b.core)
}

// MaxCap 可读数据的长度上限
func (b *Buffer) MaxCap() int {
	return b.maxCap
}

func (b *Buffer) DebugString() string {
	return fmt.Sprintf("len(core)=%d, rpos=%d, wpos=%d, max=%d", len(b.core), b.rpos, b.wpos, b.maxCap)
}

// ---------------------------------------------------------------------------------------------------------------------

func (b *Buffer) resetIfEmpty() {
	if b.rpos == b.wpos {
		b.Reset()
	}
}

func roundUpPowerOfTwo(n int) int {
	if n <= 2 {
		return 2
	}

	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
