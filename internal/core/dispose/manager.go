package dispose

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ResourceManager 资源管理器，按注册的相反顺序统一释放资源
type ResourceManager struct {
	mu        sync.Mutex
	resources map[string]Disposable
	order     []string
	disposing bool
	disposed  atomic.Int64
}

// NewResourceManager 创建新的资源管理器
func NewResourceManager() *ResourceManager {
	return &ResourceManager{
		resources: make(map[string]Disposable),
		order:     make([]string, 0),
	}
}

// Register 注册资源
func (rm *ResourceManager) Register(name string, resource Disposable) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, exists := rm.resources[name]; exists {
		return fmt.Errorf("resource %s already registered", name)
	}

	rm.resources[name] = resource
	rm.order = append(rm.order, name)
	Debugf("Registered resource: %s", name)
	return nil
}

// Unregister 注销资源，不调用其 Dispose
func (rm *ResourceManager) Unregister(name string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, exists := rm.resources[name]; !exists {
		return fmt.Errorf("resource %s not found", name)
	}

	delete(rm.resources, name)
	for i, resourceName := range rm.order {
		if resourceName == name {
			rm.order = append(rm.order[:i], rm.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListResources 按注册顺序列出资源名称
func (rm *ResourceManager) ListResources() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	names := make([]string, len(rm.order))
	copy(names, rm.order)
	return names
}

// DisposedCount 已释放的资源总数
func (rm *ResourceManager) DisposedCount() int64 {
	return rm.disposed.Load()
}

// DisposeAll 释放所有资源，按注册的相反顺序
func (rm *ResourceManager) DisposeAll() *DisposeResult {
	rm.mu.Lock()
	if rm.disposing || len(rm.resources) == 0 {
		rm.mu.Unlock()
		return &DisposeResult{Errors: make([]*DisposeError, 0)}
	}
	rm.disposing = true

	resources := rm.resources
	order := rm.order
	rm.resources = make(map[string]Disposable)
	rm.order = make([]string, 0)
	rm.mu.Unlock()

	result := &DisposeResult{Errors: make([]*DisposeError, 0), ActualDisposal: true}
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		resource := resources[name]
		if resource == nil {
			continue
		}
		rm.disposed.Add(1)
		if err := resource.Dispose(); err != nil {
			result.Errors = append(result.Errors, &DisposeError{
				HandlerIndex: len(order) - 1 - i,
				ResourceName: name,
				Err:          err,
			})
			Errorf("Failed to dispose resource %s: %v", name, err)
		} else {
			Debugf("Disposed resource: %s", name)
		}
	}

	rm.mu.Lock()
	rm.disposing = false
	rm.mu.Unlock()

	return result
}

// DisposeWithTimeout 带超时的资源释放
func (rm *ResourceManager) DisposeWithTimeout(timeout time.Duration) *DisposeResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resultChan := make(chan *DisposeResult, 1)
	go func() {
		resultChan <- rm.DisposeAll()
	}()

	select {
	case result := <-resultChan:
		return result
	case <-ctx.Done():
		return &DisposeResult{
			Errors: []*DisposeError{{
				HandlerIndex: -1,
				ResourceName: "timeout",
				Err:          fmt.Errorf("dispose timeout after %v", timeout),
			}},
		}
	}
}
