// Package bridge 实现原生引擎回调的纯 Go 部分
//
// 每个 lod_* 导出函数都是对 Surface 对应方法的一行转发。
// Surface 方法不会返回 Go 错误：所有失败都吸收成原生约定的哨兵值，
// panic 也会在这里恢复，永远不会展开到 C 栈帧。
package bridge

import (
	"math"
	"unsafe"

	coreerrors "rawbridge-core/internal/core/errors"
	corelog "rawbridge-core/internal/core/log"
	"rawbridge-core/internal/core/metrics"
	"rawbridge-core/internal/core/safe"
	"rawbridge-core/internal/datastream"
	"rawbridge-core/internal/datastream/handle"
)

// 回调名，用于指标标签与日志
const (
	OpValid   = "valid"
	OpRead    = "read"
	OpSeek    = "seek"
	OpTell    = "tell"
	OpSize    = "size"
	OpEOF     = "eof"
	OpGetChar = "get_char"
	OpGets    = "gets"
	OpScanOne = "scanf_one"
	OpDrop    = "drop"
)

// Surface 基于句柄表的导出回调实现
type Surface struct {
	registry *handle.Registry
}

// NewSurface 创建导出面
func NewSurface(r *handle.Registry) *Surface {
	return &Surface{registry: r}
}

var defaultSurface = NewSurface(handle.Default())

// Default cgo 导出函数使用的导出面
func Default() *Surface {
	return defaultSurface
}

// Registry 底层句柄表
func (s *Surface) Registry() *handle.Registry {
	return s.registry
}

func (s *Surface) stream(op string, h uintptr) (*datastream.Stream, bool) {
	metrics.RecordCallback(op)
	st, err := s.registry.Lookup(handle.Handle(h))
	if err != nil {
		s.fail(op, h, err)
		return nil, false
	}
	return st, true
}

// fail 回调热路径只记 debug 日志
func (s *Surface) fail(op string, h uintptr, err error) {
	metrics.RecordCallbackFailure(op)
	corelog.WithFields(map[string]interface{}{
		"handle": uint64(h),
		"op":     op,
	}).WithError(err).Debug("stream callback failed")
}

// Valid 流非空且长度可查询时返回 1
func (s *Surface) Valid(h uintptr) (ret int32) {
	defer safe.Recover(OpValid, &ret, 0)

	st, ok := s.stream(OpValid, h)
	if !ok {
		return 0
	}
	empty, err := st.IsEmpty()
	if err != nil {
		s.fail(OpValid, h, err)
		return 0
	}
	if empty {
		return 0
	}
	return 1
}

// Read 精确读取 size*count 字节到 buf，返回读取字节数
// 不足、出错或乘积溢出时返回 -1
func (s *Surface) Read(h uintptr, buf unsafe.Pointer, size, count uintptr) (ret int32) {
	defer safe.Recover(OpRead, &ret, -1)

	st, ok := s.stream(OpRead, h)
	if !ok {
		return -1
	}
	if size == 0 || count == 0 {
		return 0
	}
	if size > math.MaxInt32/count {
		s.fail(OpRead, h, coreerrors.Newf(coreerrors.CodeInvalidParam,
			"read request %d*%d exceeds %d bytes", size, count, math.MaxInt32))
		return -1
	}
	if buf == nil {
		s.fail(OpRead, h, coreerrors.New(coreerrors.CodeInvalidParam, "nil read buffer"))
		return -1
	}

	total := int(size * count)
	if err := st.ReadFull(unsafe.Slice((*byte)(buf), total)); err != nil {
		s.fail(OpRead, h, err)
		return -1
	}
	metrics.RecordBytesRead(total)
	return int32(total)
}

// Seek 成功返回 0，失败返回 -1，未知 whence 返回 0 且不移动
func (s *Surface) Seek(h uintptr, offset int64, whence uint32) (ret int32) {
	defer safe.Recover(OpSeek, &ret, -1)

	st, ok := s.stream(OpSeek, h)
	if !ok {
		return -1
	}
	switch int(whence) {
	case datastream.SeekSet, datastream.SeekCur, datastream.SeekEnd:
	default:
		corelog.WithField("handle", uint64(h)).Debugf("seek with unknown whence %d ignored", whence)
		return 0
	}
	if _, err := st.Seek(offset, int(whence)); err != nil {
		s.fail(OpSeek, h, err)
		return -1
	}
	return 0
}

// Tell 当前位置，失败返回 -1
func (s *Surface) Tell(h uintptr) (ret int64) {
	defer safe.Recover(OpTell, &ret, -1)

	st, ok := s.stream(OpTell, h)
	if !ok {
		return -1
	}
	pos, err := st.Tell()
	if err != nil {
		s.fail(OpTell, h, err)
		return -1
	}
	return pos
}

// Size 流长度，失败返回 -1
func (s *Surface) Size(h uintptr) (ret int64) {
	defer safe.Recover(OpSize, &ret, -1)

	st, ok := s.stream(OpSize, h)
	if !ok {
		return -1
	}
	n, err := st.Length()
	if err != nil {
		s.fail(OpSize, h, err)
		return -1
	}
	return n
}

// EOF 位于末尾返回 1，否则（包括出错）返回 0
func (s *Surface) EOF(h uintptr) (ret int32) {
	defer safe.Recover(OpEOF, &ret, 0)

	st, ok := s.stream(OpEOF, h)
	if !ok {
		return 0
	}
	end, err := st.AtEnd()
	if err != nil {
		s.fail(OpEOF, h, err)
		return 0
	}
	if end {
		return 1
	}
	return 0
}

// GetChar 读取一个字节，返回 0-255，失败返回 -1
func (s *Surface) GetChar(h uintptr) (ret int32) {
	defer safe.Recover(OpGetChar, &ret, -1)

	st, ok := s.stream(OpGetChar, h)
	if !ok {
		return -1
	}
	c, err := st.GetChar()
	if err != nil {
		s.fail(OpGetChar, h, err)
		return -1
	}
	metrics.RecordBytesRead(1)
	return int32(c)
}

// Gets 类似 fgets：最多读取 size-1 字节并以 NUL 结尾，成功返回 buf，失败返回 nil
func (s *Surface) Gets(h uintptr, buf unsafe.Pointer, size int32) (ret unsafe.Pointer) {
	defer safe.Recover[unsafe.Pointer](OpGets, &ret, nil)

	st, ok := s.stream(OpGets, h)
	if !ok {
		return nil
	}
	if size < 1 || buf == nil {
		s.fail(OpGets, h, coreerrors.Newf(coreerrors.CodeInvalidParam, "invalid gets buffer (size %d)", size))
		return nil
	}

	out := unsafe.Slice((*byte)(buf), int(size))
	if size == 1 {
		// 没有容纳数据的空间，只检查是否已到末尾
		end, err := st.AtEnd()
		if err != nil || end {
			s.fail(OpGets, h, coreerrors.NewStreamError(coreerrors.CodeStreamRead, OpGets, err))
			return nil
		}
		out[0] = 0
		return buf
	}

	n, err := st.ReadLine(out[:size-1])
	if err != nil {
		s.fail(OpGets, h, err)
		return nil
	}
	out[n] = 0
	metrics.RecordBytesRead(n)
	return buf
}

// ScanOne 按格式读取一个二进制标量写入 val，成功返回 1，失败返回 -1
func (s *Surface) ScanOne(h uintptr, format string, val unsafe.Pointer) (ret int32) {
	defer safe.Recover(OpScanOne, &ret, -1)

	st, ok := s.stream(OpScanOne, h)
	if !ok {
		return -1
	}
	if val == nil {
		s.fail(OpScanOne, h, coreerrors.New(coreerrors.CodeInvalidParam, "nil scan destination"))
		return -1
	}
	sc, err := st.ScanOne(format)
	if err != nil {
		s.fail(OpScanOne, h, err)
		return -1
	}
	if sc.IsInt {
		*(*int32)(val) = sc.Int
	} else {
		*(*float32)(val) = sc.Float
	}
	metrics.RecordBytesRead(4)
	return 1
}

// Drop 仅释放 RegisterDetached 注册的句柄
// 会话持有的句柄只由会话释放，这里记录后忽略
func (s *Surface) Drop(h uintptr) {
	defer safe.Recover[int32](OpDrop, nil, 0)

	metrics.RecordCallback(OpDrop)
	hd := handle.Handle(h)
	if !s.registry.IsDetached(hd) {
		corelog.WithField("handle", uint64(h)).Warn("drop ignored for session-owned or unknown handle")
		return
	}
	if err := s.registry.Release(hd); err != nil {
		s.fail(OpDrop, h, err)
	}
}
