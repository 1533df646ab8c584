package datastream

import (
	"io"
)

// DefaultBufferSize Buffered 默认缓冲区大小
const DefaultBufferSize = 64 * 1024

const maxEmptyReads = 100

// Buffered 为任意 Source 提供 Fill/Consume 能力
//
// 逻辑位置 = 底层位置 - 未消费的缓冲字节数。
// 成功改变位置的 Seek 会丢弃缓冲区；Seek(0, SeekCur) 仅查询位置，不丢弃。
type Buffered struct {
	src  Source
	buf  []byte
	r, w int
}

var _ BufferedSource = (*Buffered)(nil)

// NewBuffered 创建缓冲适配器，size <= 0 时使用 DefaultBufferSize
func NewBuffered(src Source, size int) *Buffered {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffered{src: src, buf: make([]byte, size)}
}

func (b *Buffered) buffered() int {
	return b.w - b.r
}

func (b *Buffered) discard() {
	b.r, b.w = 0, 0
}

// Fill 实现 BufferedSource
func (b *Buffered) Fill() ([]byte, error) {
	if b.r < b.w {
		return b.buf[b.r:b.w], nil
	}
	b.discard()
	for i := 0; i < maxEmptyReads; i++ {
		n, err := b.src.Read(b.buf)
		if n > 0 {
			b.w = n
			return b.buf[:n], nil
		}
		if err == io.EOF {
			return b.buf[:0], nil
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, io.ErrNoProgress
}

// Consume 实现 BufferedSource
func (b *Buffered) Consume(n int) {
	if n < 0 {
		n = 0
	}
	b.r += n
	if b.r > b.w {
		b.r = b.w
	}
}

// Read 实现 io.Reader
// 缓冲区为空且请求不小于缓冲区时直接读底层
func (b *Buffered) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.r == b.w && len(p) >= len(b.buf) {
		b.discard()
		return b.src.Read(p)
	}
	avail, err := b.Fill()
	if err != nil {
		return 0, err
	}
	if len(avail) == 0 {
		return 0, io.EOF
	}
	n := copy(p, avail)
	b.Consume(n)
	return n, nil
}

// Seek 实现 io.Seeker
func (b *Buffered) Seek(offset int64, whence int) (int64, error) {
	if whence == SeekCur {
		if offset == 0 {
			pos, err := b.src.Seek(0, SeekCur)
			if err != nil {
				return 0, err
			}
			return pos - int64(b.buffered()), nil
		}
		offset -= int64(b.buffered())
	}
	// 底层定位失败时位置不变，缓冲区仍与之一致，不能丢弃
	pos, err := b.src.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	b.discard()
	return pos, nil
}

// Close 关闭底层源（如果可关闭）
func (b *Buffered) Close() error {
	b.discard()
	if c, ok := b.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
