// Package errors 提供统一的错误处理机制
//
// 设计原则：
// 1. 所有错误都应该可以通过 errors.Is() 和 errors.As() 进行类型检查
// 2. 错误应该包含足够的上下文信息用于调试（会话、句柄、文件）
// 3. 错误码用于日志分类和 CLI 退出码
// 4. 支持错误链（error wrapping）
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode 错误码类型
type ErrorCode string

// 错误码定义
const (
	// 参数/配置错误
	CodeInvalidParam ErrorCode = "INVALID_PARAM"
	CodeInvalidState ErrorCode = "INVALID_STATE"
	CodeConfigError  ErrorCode = "CONFIG_ERROR"

	// 流能力错误（宿主侧数据源）
	CodeStreamRead   ErrorCode = "STREAM_READ"
	CodeStreamSeek   ErrorCode = "STREAM_SEEK"
	CodeStreamClosed ErrorCode = "STREAM_CLOSED"

	// 句柄错误
	CodeHandleNotFound ErrorCode = "HANDLE_NOT_FOUND"
	CodeHandleReleased ErrorCode = "HANDLE_RELEASED"

	// 会话协议错误
	CodeOutOfOrder    ErrorCode = "OUT_OF_ORDER"
	CodeConcurrentUse ErrorCode = "CONCURRENT_USE"

	// 引擎错误
	CodeEngineInit        ErrorCode = "ENGINE_INIT"
	CodeEngineError       ErrorCode = "ENGINE_ERROR"
	CodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	CodeDataError         ErrorCode = "DATA_ERROR"
	CodeIOError           ErrorCode = "IO_ERROR"
	CodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"
	CodeCancelled         ErrorCode = "CANCELLED"

	// 系统错误
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
)

// DetailValue 详情值类型（类型安全）
//
// 设计说明：
// - 避免使用 interface{} 保持类型安全
// - 支持字符串和整数两种常用类型
type DetailValue struct {
	strVal string
	intVal int64
	hasStr bool
	hasInt bool
}

// NewStringDetail 创建字符串类型详情值
func NewStringDetail(s string) DetailValue {
	return DetailValue{strVal: s, hasStr: true}
}

// NewIntDetail 创建整数类型详情值
func NewIntDetail(i int64) DetailValue {
	return DetailValue{intVal: i, hasInt: true}
}

// String 获取字符串值（如果是整数则转换为字符串）
func (d DetailValue) String() string {
	if d.hasStr {
		return d.strVal
	}
	if d.hasInt {
		return fmt.Sprintf("%d", d.intVal)
	}
	return ""
}

// Int 获取整数值和是否存在的标记
func (d DetailValue) Int() (int64, bool) {
	return d.intVal, d.hasInt
}

// Error 统一错误类型
type Error struct {
	Code    ErrorCode              // 错误码
	Message string                 // 错误消息
	Cause   error                  // 原始错误
	Details map[string]DetailValue // 额外详情（status、source、session 等）
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 支持 errors.Is 进行错误码比较
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetailString 添加字符串类型详情
func (e *Error) WithDetailString(key string, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]DetailValue)
	}
	e.Details[key] = NewStringDetail(value)
	return e
}

// WithDetailInt 添加整数类型详情
func (e *Error) WithDetailInt(key string, value int64) *Error {
	if e.Details == nil {
		e.Details = make(map[string]DetailValue)
	}
	e.Details[key] = NewIntDetail(value)
	return e
}

// GetDetailString 获取字符串类型详情（整数会转为字符串）
func (e *Error) GetDetailString(key string) string {
	if e.Details == nil {
		return ""
	}
	if v, ok := e.Details[key]; ok {
		return v.String()
	}
	return ""
}

// GetDetailInt 获取整数类型详情
func (e *Error) GetDetailInt(key string) (int64, bool) {
	if e.Details == nil {
		return 0, false
	}
	if v, ok := e.Details[key]; ok {
		return v.Int()
	}
	return 0, false
}

// New 创建新错误
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf 创建格式化错误
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// GetCode 从错误中提取错误码
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode 检查错误是否为指定错误码
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Is 重导出 errors.Is
var Is = errors.Is

// As 重导出 errors.As
var As = errors.As

// ============================================================================
// 特定错误类型构造函数
// ============================================================================

// NewStreamError 创建流能力错误，op 为 read/seek/tell 等回调名
func NewStreamError(code ErrorCode, op string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("[%s] stream operation failed", op),
		Cause:   cause,
	}
}

// NewOutOfOrderError 创建会话调用顺序错误
func NewOutOfOrderError(op, state string) *Error {
	return Newf(CodeOutOfOrder, "%s called in state %s", op, state).
		WithDetailString("op", op).
		WithDetailString("state", state)
}
