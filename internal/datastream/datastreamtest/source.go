// Package datastreamtest 提供数据源测试替身
package datastreamtest

import (
	"bytes"
	"errors"
	"sync/atomic"
)

// CountingSource 内存数据源，记录 Close 次数
type CountingSource struct {
	*bytes.Reader
	closes atomic.Int32
}

// NewCountingSource 创建计数数据源
func NewCountingSource(data []byte) *CountingSource {
	return &CountingSource{Reader: bytes.NewReader(data)}
}

// Close 记录一次释放
func (c *CountingSource) Close() error {
	c.closes.Add(1)
	return nil
}

// Closes 已释放次数
func (c *CountingSource) Closes() int {
	return int(c.closes.Load())
}

// ErrInjected 注入的失败
var ErrInjected = errors.New("datastreamtest: injected failure")

// FailingSource 可按操作注入失败的数据源
type FailingSource struct {
	*bytes.Reader
	FailRead bool
	FailSeek bool
	// FailSeekEnd 仅让 SeekEnd 失败（用于长度查询失败场景）
	FailSeekEnd bool
	// PanicOnRead Read 时 panic
	PanicOnRead bool
}

// NewFailingSource 创建可注入失败的数据源
func NewFailingSource(data []byte) *FailingSource {
	return &FailingSource{Reader: bytes.NewReader(data)}
}

// Read 实现 io.Reader
func (f *FailingSource) Read(p []byte) (int, error) {
	if f.PanicOnRead {
		panic("datastreamtest: read panic")
	}
	if f.FailRead {
		return 0, ErrInjected
	}
	return f.Reader.Read(p)
}

// Seek 实现 io.Seeker
func (f *FailingSource) Seek(offset int64, whence int) (int64, error) {
	if f.FailSeek || (f.FailSeekEnd && whence == 2) {
		return 0, ErrInjected
	}
	return f.Reader.Seek(offset, whence)
}
