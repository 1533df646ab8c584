package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rawbridge-core/internal/core/dispose"
	coreerrors "rawbridge-core/internal/core/errors"
	corelog "rawbridge-core/internal/core/log"
	"rawbridge-core/internal/core/safe"
)

// eventBus 事件总线实现
type eventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	closer      dispose.Dispose
}

// NewEventBus 创建新的事件总线，parentCtx 取消后停止分发
func NewEventBus(parentCtx context.Context) EventBus {
	ctx, cancel := context.WithCancel(parentCtx)

	bus := &eventBus{
		subscribers: make(map[string][]EventHandler),
		ctx:         ctx,
		cancel:      cancel,
	}
	bus.closer.AddCleanHandler(bus.onClose)
	return bus
}

// onClose 资源清理回调
func (bus *eventBus) onClose() error {
	bus.cancel()

	bus.mu.Lock()
	bus.subscribers = make(map[string][]EventHandler)
	bus.mu.Unlock()

	corelog.Debug("event bus closed")
	return nil
}

var errBusClosed = coreerrors.New(coreerrors.CodeInvalidState, "event bus is closed")

// Publish 发布事件
// 同一事件的处理器按订阅顺序在一个 goroutine 中执行
func (bus *eventBus) Publish(event Event) error {
	if bus.closer.IsClosed() {
		return errBusClosed
	}

	eventType := event.Type()

	bus.mu.RLock()
	handlers := append([]EventHandler(nil), bus.subscribers[eventType]...)
	bus.mu.RUnlock()
	if len(handlers) == 0 {
		return nil
	}

	safe.Go("event:"+eventType, func() {
		for _, handler := range handlers {
			select {
			case <-bus.ctx.Done():
				return
			default:
			}
			if err := handler(event); err != nil {
				corelog.Errorf("Event handler failed for event %s: %v", eventType, err)
			}
		}
	})
	return nil
}

// handlerKey 函数值不可比较，用地址区分处理器
func handlerKey(h EventHandler) string {
	return fmt.Sprintf("%p", h)
}

// Subscribe 订阅事件，重复订阅同一处理器无效果
func (bus *eventBus) Subscribe(eventType string, handler EventHandler) error {
	if bus.closer.IsClosed() {
		return errBusClosed
	}
	if eventType == "" {
		return coreerrors.New(coreerrors.CodeInvalidParam, "event type cannot be empty")
	}
	if handler == nil {
		return coreerrors.New(coreerrors.CodeInvalidParam, "event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	key := handlerKey(handler)
	for _, existing := range bus.subscribers[eventType] {
		if handlerKey(existing) == key {
			return nil
		}
	}
	bus.subscribers[eventType] = append(bus.subscribers[eventType], handler)
	return nil
}

// Unsubscribe 取消订阅
func (bus *eventBus) Unsubscribe(eventType string, handler EventHandler) error {
	if bus.closer.IsClosed() {
		return errBusClosed
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	handlers := bus.subscribers[eventType]
	key := handlerKey(handler)
	for i, existing := range handlers {
		if handlerKey(existing) == key {
			bus.subscribers[eventType] = append(handlers[:i:i], handlers[i+1:]...)
			return nil
		}
	}
	return coreerrors.Newf(coreerrors.CodeInvalidParam, "handler not found for event type: %s", eventType)
}

// Close 关闭事件总线
func (bus *eventBus) Close() error {
	return bus.closer.CloseWithError()
}

// Dispose 实现 dispose.Disposable
func (bus *eventBus) Dispose() error {
	return bus.Close()
}

// HandlerCount 指定事件类型的处理器数量
func (bus *eventBus) HandlerCount(eventType string) int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subscribers[eventType])
}

// WaitForEvent 等待指定类型的事件（用于测试）
func WaitForEvent(bus EventBus, eventType string, timeout time.Duration) (Event, error) {
	eventChan := make(chan Event, 1)
	handler := func(event Event) error {
		select {
		case eventChan <- event:
		default:
		}
		return nil
	}
	if err := bus.Subscribe(eventType, handler); err != nil {
		return nil, err
	}
	defer func() { _ = bus.Unsubscribe(eventType, handler) }()

	select {
	case event := <-eventChan:
		return event, nil
	case <-time.After(timeout):
		return nil, coreerrors.Newf(coreerrors.CodeInternal, "timeout waiting for event type: %s", eventType)
	}
}
