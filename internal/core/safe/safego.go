// Package safe 提供 panic 恢复工具
//
// 导出给原生代码的回调不允许 panic 越过语言边界，
// Recover 把 panic 转成调用方约定的失败返回值。
package safe

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	corelog "rawbridge-core/internal/core/log"
)

var (
	panicCount  atomic.Int64
	activeCount atomic.Int64
	totalCount  atomic.Int64
	panicHookMu sync.RWMutex
	panicHook   func(op string, recovered interface{})
)

// Stats 统计信息
type Stats struct {
	Active     int64 // 当前活跃 goroutine 数量
	Total      int64 // 累计启动数量
	PanicCount int64 // 已恢复的 panic 次数
}

// GetStats 获取统计信息
func GetStats() Stats {
	return Stats{
		Active:     activeCount.Load(),
		Total:      totalCount.Load(),
		PanicCount: panicCount.Load(),
	}
}

// SetPanicHook 设置 panic 恢复后的回调（用于指标上报），传 nil 清除
func SetPanicHook(fn func(op string, recovered interface{})) {
	panicHookMu.Lock()
	defer panicHookMu.Unlock()
	panicHook = fn
}

func onPanic(op string, r interface{}) {
	panicCount.Add(1)
	corelog.Errorf("SafeGo[%s]: panic recovered: %v\n%s", op, r, debug.Stack())

	panicHookMu.RLock()
	hook := panicHook
	panicHookMu.RUnlock()
	if hook != nil {
		hook(op, r)
	}
}

// Recover 必须直接 defer 调用：
//
//	defer safe.Recover("read", &ret, -1)
//
// 发生 panic 时把 *result 改写为 sentinel
func Recover[T any](op string, result *T, sentinel T) {
	if r := recover(); r != nil {
		onPanic(op, r)
		if result != nil {
			*result = sentinel
		}
	}
}

// Go 安全启动 goroutine
func Go(name string, fn func()) {
	totalCount.Add(1)
	activeCount.Add(1)

	go func() {
		defer func() {
			activeCount.Add(-1)
			if r := recover(); r != nil {
				onPanic(name, r)
			}
		}()
		fn()
	}()
}

// GoWithContext 带 context 的安全 goroutine
func GoWithContext(ctx context.Context, name string, fn func(ctx context.Context)) {
	Go(name, func() { fn(ctx) })
}
