package log

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"rawbridge-core/internal/config/schema"
	coreerrors "rawbridge-core/internal/core/errors"
	"rawbridge-core/internal/core/dispose"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Configure 按配置创建 logrus 日志并设为默认 Logger
// 同时把 dispose 包的日志回调接到新 Logger 上
// 返回的 Closer 负责关闭日志文件（输出到 stdout/stderr 时为空操作）
func Configure(cfg schema.LogConfig) (io.Closer, error) {
	l, closer, err := New(cfg)
	if err != nil {
		return nil, err
	}

	logger := NewLogrusLogger(l)
	SetDefault(logger)
	dispose.SetLogger(func(level, format string, args ...interface{}) {
		switch level {
		case "debug":
			logger.Debugf(format, args...)
		case "warn":
			logger.Warnf(format, args...)
		case "error":
			logger.Errorf(format, args...)
		default:
			logger.Infof(format, args...)
		}
	})

	return closer, nil
}

// New 按配置创建 logrus.Logger，不修改默认 Logger
func New(cfg schema.LogConfig) (*logrus.Logger, io.Closer, error) {
	l := logrus.New()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case schema.LogFormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	var closer io.Closer = nopCloser{}
	switch strings.ToLower(cfg.Output) {
	case schema.LogOutputStdout:
		l.SetOutput(os.Stdout)
	case schema.LogOutputFile:
		if cfg.File == "" {
			return nil, nil, coreerrors.New(coreerrors.CodeConfigError, "log file path is empty")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, coreerrors.Wrap(err, coreerrors.CodeConfigError, "failed to create log directory")
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, coreerrors.Wrap(err, coreerrors.CodeConfigError, "failed to open log file")
		}
		l.SetOutput(f)
		closer = f
	case schema.LogOutputNone:
		l.SetOutput(io.Discard)
	default:
		l.SetOutput(os.Stderr)
	}

	return l, closer, nil
}

// ParseLevel 解析日志级别，空字符串视为 info
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "", schema.LogLevelInfo:
		return logrus.InfoLevel, nil
	case schema.LogLevelDebug:
		return logrus.DebugLevel, nil
	case schema.LogLevelWarn, "warning":
		return logrus.WarnLevel, nil
	case schema.LogLevelError:
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, coreerrors.Newf(coreerrors.CodeConfigError, "unknown log level %q", level)
	}
}
