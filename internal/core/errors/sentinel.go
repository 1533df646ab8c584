package errors

// 预定义哨兵错误（用于 errors.Is 比较）
// 这些错误用于快速类型检查，不包含详细信息
var (
	// 参数错误
	ErrInvalidParam = New(CodeInvalidParam, "invalid parameter")
	ErrInvalidState = New(CodeInvalidState, "invalid state")

	// 流能力错误
	ErrStreamRead   = New(CodeStreamRead, "stream read failed")
	ErrStreamSeek   = New(CodeStreamSeek, "stream seek failed")
	ErrStreamClosed = New(CodeStreamClosed, "stream closed")

	// 句柄错误
	ErrHandleNotFound = New(CodeHandleNotFound, "handle not found")
	ErrHandleReleased = New(CodeHandleReleased, "handle already released")

	// 会话错误
	ErrOutOfOrder    = New(CodeOutOfOrder, "out-of-order call")
	ErrConcurrentUse = New(CodeConcurrentUse, "session used concurrently")

	// 引擎错误
	ErrEngineInit        = New(CodeEngineInit, "engine initialization failed")
	ErrEngineError       = New(CodeEngineError, "engine error")
	ErrUnsupportedFormat = New(CodeUnsupportedFormat, "unsupported file format")
	ErrDataError         = New(CodeDataError, "corrupted or truncated data")
	ErrIOError           = New(CodeIOError, "input/output error")
	ErrResourceExhausted = New(CodeResourceExhausted, "resource exhausted")
	ErrCancelled         = New(CodeCancelled, "cancelled by callback")

	// 系统错误
	ErrInternal       = New(CodeInternal, "internal error")
	ErrNotImplemented = New(CodeNotImplemented, "not implemented")
)

// 错误检查辅助函数

// IsStreamError 检查是否为宿主数据源能力错误
func IsStreamError(err error) bool {
	return IsCode(err, CodeStreamRead) ||
		IsCode(err, CodeStreamSeek) ||
		IsCode(err, CodeStreamClosed)
}

// IsHandleError 检查是否为句柄生命周期错误
func IsHandleError(err error) bool {
	return IsCode(err, CodeHandleNotFound) ||
		IsCode(err, CodeHandleReleased)
}

// IsProtocolError 检查是否为调用协议错误（调用方编程错误）
func IsProtocolError(err error) bool {
	return IsCode(err, CodeOutOfOrder) ||
		IsCode(err, CodeConcurrentUse) ||
		IsCode(err, CodeInvalidParam)
}

// IsRetryable 检查错误是否可通过重新打开会话重试
// 数据源 I/O 失败可能是暂时的；格式、数据错误重试无意义
func IsRetryable(err error) bool {
	switch GetCode(err) {
	case CodeIOError, CodeStreamRead, CodeStreamSeek, CodeResourceExhausted:
		return true
	default:
		return false
	}
}
