// Package handle 管理跨 FFI 边界的不透明流句柄
//
// 原生引擎只看到一个非零整数；Registry 独占持有对应的 Stream，
// Release 是唯一的释放点，每个句柄恰好释放一次。
package handle

import (
	"sync"

	"rawbridge-core/internal/core/dispose"
	coreerrors "rawbridge-core/internal/core/errors"
	corelog "rawbridge-core/internal/core/log"
	"rawbridge-core/internal/core/metrics"
	"rawbridge-core/internal/datastream"
)

// Handle 跨边界传递的句柄值，0 永远无效
type Handle uintptr

// Invalid 无效句柄
const Invalid Handle = 0

type entry struct {
	stream *datastream.Stream
	// detached 句柄不属于任何会话，可由 lod_drop 释放
	detached bool
}

// Registry 存活句柄表，Register/Lookup/Release 并发安全
// 单个 Stream 仍然只能由持有句柄的会话使用
type Registry struct {
	mu      sync.RWMutex
	entries map[Handle]*entry
	// 句柄单调递增且不复用：不在表中且不大于 next 的句柄必定已释放
	next Handle
}

// NewRegistry 创建句柄表
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[Handle]*entry),
	}
}

var defaultRegistry = NewRegistry()

// Default 导出回调使用的进程级句柄表
func Default() *Registry {
	return defaultRegistry
}

func (r *Registry) add(s *datastream.Stream, detached bool) Handle {
	r.mu.Lock()
	r.next++
	h := r.next
	r.entries[h] = &entry{stream: s, detached: detached}
	r.mu.Unlock()

	metrics.HandleRegistered()
	corelog.WithField("handle", uint64(h)).Debugf("stream handle registered (%s)", s.Name())
	return h
}

// Register 登记会话持有的流，返回稳定的非零句柄
func (r *Registry) Register(s *datastream.Stream) Handle {
	return r.add(s, false)
}

// RegisterDetached 登记不属于会话的流（测试与独立调用），允许经 lod_drop 释放
func (r *Registry) RegisterDetached(s *datastream.Stream) Handle {
	return r.add(s, true)
}

// Lookup 查找句柄对应的流
func (r *Registry) Lookup(h Handle) (*datastream.Stream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[h]; ok {
		return e.stream, nil
	}
	return nil, r.missingLocked(h)
}

// IsDetached 句柄是否为独立登记
func (r *Registry) IsDetached(h Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[h]
	return ok && e.detached
}

func (r *Registry) missingLocked(h Handle) error {
	if h != Invalid && h <= r.next {
		return coreerrors.ErrHandleReleased
	}
	return coreerrors.ErrHandleNotFound
}

// Release 移除句柄并关闭其流
// 重复释放返回 ErrHandleReleased，不会再次关闭
func (r *Registry) Release(h Handle) error {
	r.mu.Lock()
	e, ok := r.entries[h]
	if !ok {
		err := r.missingLocked(h)
		r.mu.Unlock()
		return err
	}
	delete(r.entries, h)
	r.mu.Unlock()

	metrics.HandleReleased()
	if err := e.stream.Close(); err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeIOError, "close stream for handle %d", h)
	}
	return nil
}

// Len 存活句柄数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Dispose 释放所有仍存活的句柄（进程退出时的兜底清理）
func (r *Registry) Dispose() error {
	r.mu.RLock()
	live := make([]Handle, 0, len(r.entries))
	for h := range r.entries {
		live = append(live, h)
	}
	r.mu.RUnlock()

	var first error
	for _, h := range live {
		corelog.WithField("handle", uint64(h)).Warn("releasing leaked stream handle")
		if err := r.Release(h); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ dispose.Disposable = (*Registry)(nil)
