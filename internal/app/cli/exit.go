package cli

import (
	coreerrors "rawbridge-core/internal/core/errors"
)

// 退出码
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitUnsupported = 3
	ExitDataError   = 4
	ExitIOError     = 5
)

// ExitCode 按错误码分类退出码
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch coreerrors.GetCode(err) {
	case coreerrors.CodeConfigError, coreerrors.CodeInvalidParam:
		return ExitUsage
	case coreerrors.CodeUnsupportedFormat, coreerrors.CodeNotImplemented:
		return ExitUnsupported
	case coreerrors.CodeDataError:
		return ExitDataError
	case coreerrors.CodeIOError, coreerrors.CodeStreamRead, coreerrors.CodeStreamSeek:
		return ExitIOError
	default:
		return ExitFailure
	}
}
