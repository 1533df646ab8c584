// Package dispose 提供一次性释放语义的资源管理
package dispose

import (
	"fmt"
	"sync"
)

// DisposeError 清理过程中的错误信息
type DisposeError struct {
	HandlerIndex int
	ResourceName string
	Err          error
}

func (e *DisposeError) Error() string {
	if e.ResourceName != "" {
		return fmt.Sprintf("cleanup resource[%s] handler[%d] failed: %v", e.ResourceName, e.HandlerIndex, e.Err)
	}
	return fmt.Sprintf("cleanup handler[%d] failed: %v", e.HandlerIndex, e.Err)
}

func (e *DisposeError) Unwrap() error {
	return e.Err
}

// DisposeResult 清理结果
type DisposeResult struct {
	Errors []*DisposeError
	// ActualDisposal 本次调用是否真正执行了清理
	ActualDisposal bool
}

func (r *DisposeResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *DisposeResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	return fmt.Sprintf("dispose cleanup failed with %d errors", len(r.Errors))
}

// Err 返回第一个清理错误，没有错误时返回 nil
func (r *DisposeResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return r.Errors[0].Err
}

// Disposable 统一的资源释放接口
type Disposable interface {
	Dispose() error
}

// DisposableFunc 把函数适配为 Disposable
type DisposableFunc func() error

// Dispose 实现 Disposable
func (f DisposableFunc) Dispose() error { return f() }

// Dispose 一次性清理器
// 清理处理器按注册的相反顺序执行，且整个生命周期内只执行一次
type Dispose struct {
	mu       sync.Mutex
	closed   bool
	handlers []func() error
	errors   []*DisposeError
}

// IsClosed 是否已经执行过清理
func (c *Dispose) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// AddCleanHandler 添加清理处理器
// 已关闭后添加的处理器会被立即执行
func (c *Dispose) AddCleanHandler(f func() error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if err := f(); err != nil {
			Errorf("Late cleanup handler failed: %v", err)
		}
		return
	}
	c.handlers = append(c.handlers, f)
	c.mu.Unlock()
}

// Close 执行清理，重复调用返回首次清理的错误且不再执行处理器
func (c *Dispose) Close() *DisposeResult {
	c.mu.Lock()
	if c.closed {
		errs := c.errors
		c.mu.Unlock()
		return &DisposeResult{Errors: errs}
	}
	c.closed = true
	handlers := c.handlers
	c.handlers = nil
	c.mu.Unlock()

	result := &DisposeResult{Errors: make([]*DisposeError, 0), ActualDisposal: true}
	for i := len(handlers) - 1; i >= 0; i-- {
		if err := handlers[i](); err != nil {
			disposeErr := &DisposeError{HandlerIndex: i, Err: err}
			result.Errors = append(result.Errors, disposeErr)
			Errorf("Cleanup handler[%d] failed: %v", i, err)
		}
	}

	c.mu.Lock()
	c.errors = result.Errors
	c.mu.Unlock()
	return result
}

// CloseWithError 执行清理并返回第一个错误
func (c *Dispose) CloseWithError() error {
	return c.Close().Err()
}

// GetErrors 获取清理过程中的错误
func (c *Dispose) GetErrors() []*DisposeError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors
}
