// Package events 提供进程内事件总线，用于发布会话生命周期事件
package events

import (
	"time"
)

// Event 事件接口
type Event interface {
	Type() string
	Timestamp() time.Time
	Source() string
}

// EventHandler 事件处理器
type EventHandler func(event Event) error

// EventBus 事件总线接口
type EventBus interface {
	// Publish 发布事件，处理器异步执行
	Publish(event Event) error

	// Subscribe 订阅事件
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe 取消订阅
	Unsubscribe(eventType string, handler EventHandler) error

	// Close 关闭事件总线
	Close() error
}

// BaseEvent 基础事件实现
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventTime   time.Time `json:"event_time"`
	EventSource string    `json:"event_source"`
}

func (e *BaseEvent) Type() string {
	return e.EventType
}

func (e *BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func (e *BaseEvent) Source() string {
	return e.EventSource
}

// ============================================================================
// 会话事件
// ============================================================================

// 会话事件类型
const (
	EventSessionOpened    = "SessionOpened"
	EventSessionProcessed = "SessionProcessed"
	EventSessionFailed    = "SessionFailed"
	EventSessionClosed    = "SessionClosed"
)

// SessionEvents 所有会话事件类型
var SessionEvents = []string{
	EventSessionOpened,
	EventSessionProcessed,
	EventSessionFailed,
	EventSessionClosed,
}

// SessionEvent 会话状态变化
type SessionEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	File      string `json:"file"`
	// Op 触发事件的操作（open/unpack/process/close）
	Op string `json:"op"`
	// Status 引擎状态名，仅失败事件
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewSessionEvent 创建会话事件
func NewSessionEvent(eventType, sessionID, file, op string) *SessionEvent {
	return &SessionEvent{
		BaseEvent: BaseEvent{
			EventType:   eventType,
			EventTime:   time.Now(),
			EventSource: "Session",
		},
		SessionID: sessionID,
		File:      file,
		Op:        op,
	}
}

// WithError 附加失败信息
func (e *SessionEvent) WithError(status string, err error) *SessionEvent {
	e.Status = status
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
