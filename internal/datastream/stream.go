package datastream

import (
	"encoding/binary"
	"io"
	"math"

	coreerrors "rawbridge-core/internal/core/errors"
)

// MaxLine gets 单次请求的容量上限
const MaxLine = math.MaxUint16

// Stream 能力集合：独占持有一个 BufferedSource
type Stream struct {
	src     BufferedSource
	maxLine int
	name    string
	closed  bool
}

// Option Stream 选项
type Option func(*Stream)

// WithBufferSize 设置非缓冲源的适配缓冲区大小
func WithBufferSize(size int) Option {
	return func(s *Stream) {
		if b, ok := s.src.(*Buffered); ok && size > 0 && size != len(b.buf) {
			b.buf = make([]byte, size)
		}
	}
}

// WithMaxLine 设置 ReadLine 容量上限，取值范围 [1, MaxLine]
func WithMaxLine(n int) Option {
	return func(s *Stream) {
		if n >= 1 && n <= MaxLine {
			s.maxLine = n
		}
	}
}

// WithName 设置流名称（用于日志）
func WithName(name string) Option {
	return func(s *Stream) { s.name = name }
}

// NewStream 包装字节源；非 BufferedSource 会套上 Buffered
func NewStream(src Source, opts ...Option) *Stream {
	bs, ok := src.(BufferedSource)
	if !ok {
		bs = NewBuffered(src, DefaultBufferSize)
	}
	s := &Stream{src: bs, maxLine: MaxLine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name 流名称
func (s *Stream) Name() string {
	return s.name
}

// MaxLine ReadLine 容量上限
func (s *Stream) MaxLine() int {
	return s.maxLine
}

func (s *Stream) checkOpen(op string) error {
	if s.closed {
		return coreerrors.NewStreamError(coreerrors.CodeStreamClosed, op, nil)
	}
	return nil
}

// ReadFull 精确读取 len(p) 字节，不足即失败
func (s *Stream) ReadFull(p []byte) error {
	if err := s.checkOpen("read"); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	if _, err := io.ReadFull(s.src, p); err != nil {
		return coreerrors.NewStreamError(coreerrors.CodeStreamRead, "read", err)
	}
	return nil
}

// Seek 定位，返回新的绝对位置
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if err := s.checkOpen("seek"); err != nil {
		return 0, err
	}
	switch whence {
	case SeekSet, SeekCur, SeekEnd:
	default:
		return 0, coreerrors.Newf(coreerrors.CodeInvalidParam, "invalid whence %d", whence)
	}
	pos, err := s.src.Seek(offset, whence)
	if err != nil {
		return 0, coreerrors.NewStreamError(coreerrors.CodeStreamSeek, "seek", err)
	}
	return pos, nil
}

// Tell 当前位置
func (s *Stream) Tell() (int64, error) {
	return s.Seek(0, SeekCur)
}

// Length 流长度：保存位置，跳到末尾，位置有变化时恢复
func (s *Stream) Length() (int64, error) {
	current, err := s.Tell()
	if err != nil {
		return 0, err
	}
	end, err := s.Seek(0, SeekEnd)
	if err != nil {
		return 0, err
	}
	if current != end {
		if _, err := s.Seek(current, SeekSet); err != nil {
			return 0, err
		}
	}
	return end, nil
}

// AtEnd 当前位置是否等于流长度
func (s *Stream) AtEnd() (bool, error) {
	current, err := s.Tell()
	if err != nil {
		return false, err
	}
	end, err := s.Length()
	if err != nil {
		return false, err
	}
	return current == end, nil
}

// IsEmpty 流长度是否为 0
func (s *Stream) IsEmpty() (bool, error) {
	n, err := s.Length()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// GetChar 读取一个字节，返回 0-255
func (s *Stream) GetChar() (int, error) {
	var b [1]byte
	if err := s.ReadFull(b[:]); err != nil {
		return 0, err
	}
	return int(b[0]), nil
}

// ReadLine 类似 fgets：读取直到换行符（包含）或 dst 写满
//
// len(dst) 超过上限时按上限截断；已到流末尾时失败且不消费任何字节。
// 返回写入 dst 的字节数。
func (s *Stream) ReadLine(dst []byte) (int, error) {
	if err := s.checkOpen("gets"); err != nil {
		return 0, err
	}
	if len(dst) < 1 {
		return 0, coreerrors.New(coreerrors.CodeInvalidParam, "line buffer capacity must be at least 1")
	}
	if len(dst) > s.maxLine {
		dst = dst[:s.maxLine]
	}

	// 已在末尾：不消费任何字节直接失败
	if avail, err := s.src.Fill(); err != nil && !isInterrupted(err) {
		return 0, coreerrors.NewStreamError(coreerrors.CodeStreamRead, "gets", err)
	} else if err == nil && len(avail) == 0 {
		return 0, coreerrors.NewStreamError(coreerrors.CodeStreamRead, "gets", io.EOF)
	}

	written := 0
	for {
		avail, err := s.src.Fill()
		if err != nil {
			if isInterrupted(err) {
				continue
			}
			return written, coreerrors.NewStreamError(coreerrors.CodeStreamRead, "gets", err)
		}

		limit := len(avail)
		if room := len(dst) - written; room < limit {
			limit = room
		}

		used, done := limit, false
		for i := 0; i < limit; i++ {
			if avail[i] == '\n' {
				used, done = i+1, true
				break
			}
		}
		copy(dst[written:], avail[:used])
		s.src.Consume(used)
		written += used

		if done || used == 0 {
			return written, nil
		}
	}
}

// Scalar scanf_one 的解析结果
type Scalar struct {
	Int   int32
	Float float32
	IsInt bool
}

// ScanOne 按格式读取 4 字节原生字节序的二进制标量
// 仅支持 "%d"（int32）与 "%f"（float32）；读取不足时失败
func (s *Stream) ScanOne(format string) (Scalar, error) {
	switch format {
	case "%d", "%f":
	default:
		return Scalar{}, coreerrors.Newf(coreerrors.CodeNotImplemented, "unsupported scan format %q", format)
	}

	var raw [4]byte
	if err := s.ReadFull(raw[:]); err != nil {
		return Scalar{}, err
	}
	bits := binary.NativeEndian.Uint32(raw[:])
	if format == "%d" {
		return Scalar{Int: int32(bits), IsInt: true}, nil
	}
	return Scalar{Float: math.Float32frombits(bits)}, nil
}

// Close 关闭流及底层源，重复调用无副作用
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Closed 是否已关闭
func (s *Stream) Closed() bool {
	return s.closed
}
