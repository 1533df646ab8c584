package engine

import (
	"fmt"
	"syscall"

	coreerrors "rawbridge-core/internal/core/errors"
)

// Status 引擎返回的整数状态码，取值与 LibRaw 一致
// 正数为引擎透传的操作系统 errno
type Status int32

const (
	StatusSuccess                        Status = 0
	StatusUnspecifiedError               Status = -1
	StatusFileUnsupported                Status = -2
	StatusRequestForNonexistentImage     Status = -3
	StatusOutOfOrderCall                 Status = -4
	StatusNoThumbnail                    Status = -5
	StatusUnsupportedThumbnail           Status = -6
	StatusInputClosed                    Status = -7
	StatusNotImplemented                 Status = -8
	StatusRequestForNonexistentThumbnail Status = -9
	StatusInsufficientMemory             Status = -100007
	StatusDataError                      Status = -100008
	StatusIOError                        Status = -100009
	StatusCancelledByCallback            Status = -100010
	StatusBadCrop                        Status = -100011
	StatusTooBig                         Status = -100012
	StatusMempoolOverflow                Status = -100013
)

// DetailStatus 错误详情中保存原始状态码的键
const DetailStatus = "status"

type statusInfo struct {
	name string
	code coreerrors.ErrorCode
	text string
}

var statusTable = map[Status]statusInfo{
	StatusSuccess:                        {"Success", "", "no error"},
	StatusUnspecifiedError:               {"UnspecifiedError", coreerrors.CodeEngineError, "unspecified error"},
	StatusFileUnsupported:                {"FileUnsupported", coreerrors.CodeUnsupportedFormat, "unsupported file format or not RAW file"},
	StatusRequestForNonexistentImage:     {"RequestForNonexistentImage", coreerrors.CodeInvalidParam, "request for nonexisting image number"},
	StatusOutOfOrderCall:                 {"OutOfOrderCall", coreerrors.CodeOutOfOrder, "out of order call of engine function"},
	StatusNoThumbnail:                    {"NoThumbnail", coreerrors.CodeEngineError, "no thumbnail in file"},
	StatusUnsupportedThumbnail:           {"UnsupportedThumbnail", coreerrors.CodeUnsupportedFormat, "unsupported thumbnail format"},
	StatusInputClosed:                    {"InputClosed", coreerrors.CodeStreamClosed, "input stream is not available"},
	StatusNotImplemented:                 {"NotImplemented", coreerrors.CodeNotImplemented, "decoder not implemented for this data format"},
	StatusRequestForNonexistentThumbnail: {"RequestForNonexistentThumbnail", coreerrors.CodeInvalidParam, "request for nonexisting thumbnail number"},
	StatusInsufficientMemory:             {"InsufficientMemory", coreerrors.CodeResourceExhausted, "unsufficient memory"},
	StatusDataError:                      {"DataError", coreerrors.CodeDataError, "corrupted data or unexpected EOF"},
	StatusIOError:                        {"IOError", coreerrors.CodeIOError, "input/output error"},
	StatusCancelledByCallback:            {"CancelledByCallback", coreerrors.CodeCancelled, "cancelled by user callback"},
	StatusBadCrop:                        {"BadCrop", coreerrors.CodeInvalidParam, "bad crop box"},
	StatusTooBig:                         {"TooBig", coreerrors.CodeResourceExhausted, "image too big for processing"},
	StatusMempoolOverflow:                {"MempoolOverflow", coreerrors.CodeResourceExhausted, "memory pool overflow"},
}

// String 状态名
func (s Status) String() string {
	if info, ok := statusTable[s]; ok {
		return info.name
	}
	if s > 0 {
		return fmt.Sprintf("Errno(%d)", int32(s))
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

// OK 是否成功
func (s Status) OK() bool {
	return s == StatusSuccess
}

// Code 对应的错误码
func (s Status) Code() coreerrors.ErrorCode {
	if info, ok := statusTable[s]; ok {
		return info.code
	}
	if s > 0 {
		return coreerrors.CodeIOError
	}
	return coreerrors.CodeEngineError
}

// AsError 转换为结构化错误，成功时返回 nil
// 返回的错误是新建的，调用方可以继续追加详情
func (s Status) AsError() *coreerrors.Error {
	if s == StatusSuccess {
		return nil
	}

	var e *coreerrors.Error
	switch info, ok := statusTable[s]; {
	case ok:
		e = coreerrors.New(info.code, "libraw: "+info.text)
	case s > 0:
		e = coreerrors.Wrap(syscall.Errno(s), coreerrors.CodeIOError, "libraw: system error")
	default:
		e = coreerrors.Newf(coreerrors.CodeEngineError, "libraw: unknown status %d", int32(s))
	}
	return e.WithDetailInt(DetailStatus, int64(s)).WithDetailString("status_name", s.String())
}

// Err 同 AsError，但以 error 接口返回（成功时为无类型 nil）
func (s Status) Err() error {
	if e := s.AsError(); e != nil {
		return e
	}
	return nil
}

// reverse 错误码到状态码的默认映射（错误未携带原始状态码时使用）
var reverse = map[coreerrors.ErrorCode]Status{
	coreerrors.CodeUnsupportedFormat: StatusFileUnsupported,
	coreerrors.CodeOutOfOrder:        StatusOutOfOrderCall,
	coreerrors.CodeStreamClosed:      StatusInputClosed,
	coreerrors.CodeNotImplemented:    StatusNotImplemented,
	coreerrors.CodeResourceExhausted: StatusInsufficientMemory,
	coreerrors.CodeDataError:         StatusDataError,
	coreerrors.CodeIOError:           StatusIOError,
	coreerrors.CodeStreamRead:        StatusIOError,
	coreerrors.CodeStreamSeek:        StatusIOError,
	coreerrors.CodeCancelled:         StatusCancelledByCallback,
	coreerrors.CodeInvalidParam:      StatusRequestForNonexistentImage,
}

// StatusOf 从任意错误中恢复原生状态码
// 优先使用详情中的原始状态码，其次按错误码映射，其余为 UnspecifiedError
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	// 沿错误链查找携带原始状态码的那一层
	var first *coreerrors.Error
	for cur := err; cur != nil; {
		var e *coreerrors.Error
		if !coreerrors.As(cur, &e) {
			break
		}
		if v, ok := e.GetDetailInt(DetailStatus); ok {
			return Status(v)
		}
		if first == nil {
			first = e
		}
		cur = e.Cause
	}
	if first != nil {
		if st, ok := reverse[first.Code]; ok {
			return st
		}
	}
	var errno syscall.Errno
	if coreerrors.As(err, &errno) {
		return Status(errno)
	}
	return StatusUnspecifiedError
}
