// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"errors"
	"fmt"
)

// ----- 通用的 ---------------------------------------------------------------------------------------------------------

var (
	ErrShortBuffer    = errors.New("tsdemux: buffer too short")
	ErrBufferOverflow = errors.New("tsdemux: buffer exceeds max capacity")
	ErrFileNotExist   = errors.New("tsdemux: file not exist")
	ErrDumpFile       = errors.New("tsdemux: invalid dump file")
)

func NewErrShortBuffer(need, actual int, msg string) error {
	return fmt.Errorf("%w. need=%d, actual=%d, msg=%s", ErrShortBuffer, need, actual, msg)
}

func NewErrBufferOverflow(need, max int) error {
	return fmt.Errorf("%w. need=%d, max=%d", ErrBufferOverflow, need, max)
}

// ----- pkg/aac -------------------------------------------------------------------------------------------------------

var (
	ErrAac                    = errors.New("tsdemux.aac: fxxk")
	ErrSamplingFrequencyIndex = errors.New("tsdemux.aac: invalid sampling frequency index")
)

// ----- pkg/ac3 -------------------------------------------------------------------------------------------------------

var ErrAc3 = errors.New("tsdemux.ac3: invalid sync frame")

// ----- pkg/avc -------------------------------------------------------------------------------------------------------

var ErrAvc = errors.New("tsdemux.avc: fxxk")

// ----- pkg/hevc ------------------------------------------------------------------------------------------------------

var ErrHevc = errors.New("tsdemux.hevc: fxxk")

// ----- pkg/mpegts ----------------------------------------------------------------------------------------------------

var (
	// ErrIo 读取输入失败，对当前文件来说是致命错误
	ErrIo = errors.New("tsdemux.mpegts: io error")

	// ErrNoSync 在扫描预算内找不到或恢复不了同步字节
	ErrNoSync = errors.New("tsdemux.mpegts: no sync")

	ErrTransportError         = errors.New("tsdemux.mpegts: transport error indicator set")
	ErrNullPacket             = errors.New("tsdemux.mpegts: null packet")
	ErrMalformedAdaptation    = errors.New("tsdemux.mpegts: malformed adaptation field")
	ErrMalformedSection       = errors.New("tsdemux.mpegts: malformed psi section")
	ErrSectionTooLarge        = errors.New("tsdemux.mpegts: psi section too large")
	ErrUnexpectedContinuation = errors.New("tsdemux.mpegts: continuation without section in progress")
	ErrMalformedPes           = errors.New("tsdemux.mpegts: malformed pes header")
)

func NewErrMalformedAdaptation(pid uint16, length, capacity int) error {
	return fmt.Errorf("%w. pid=%d, length=%d, capacity=%d", ErrMalformedAdaptation, pid, length, capacity)
}

func NewErrMalformedSection(pid uint16, reason string) error {
	return fmt.Errorf("%w. pid=%d, reason=%s", ErrMalformedSection, pid, reason)
}

func NewErrSectionTooLarge(pid uint16, length, max int) error {
	return fmt.Errorf("%w. pid=%d, length=%d, max=%d", ErrSectionTooLarge, pid, length, max)
}

func NewErrUnexpectedContinuation(pid uint16) error {
	return fmt.Errorf("%w. pid=%d", ErrUnexpectedContinuation, pid)
}

func NewErrMalformedPes(pid uint16, reason string) error {
	return fmt.Errorf("%w. pid=%d, reason=%s", ErrMalformedPes, pid, reason)
}

// ----- pkg/report ----------------------------------------------------------------------------------------------------

var (
	ErrReport      = errors.New("tsdemux.report: fxxk")
	ErrReportEmpty = errors.New("tsdemux.report: no parsed data")
)

// ---------------------------------------------------------------------------------------------------------------------
