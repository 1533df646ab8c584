package source

import (
	"io"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	coreerrors "rawbridge-core/internal/core/errors"
)

// Paged 基于 io.ReaderAt 的分页读取源
//
// 页按需加载并缓存在 LRU 中，同一页的并发加载经 singleflight 合并。
// 游标本身不是并发安全的，一个 Paged 只能由一个流使用；
// 页缓存可以安全地被多个 goroutine 预取。
type Paged struct {
	ra       io.ReaderAt
	size     int64
	pageSize int64
	pos      int64

	pages *lru.Cache[int64, []byte]
	group singleflight.Group

	mu     sync.Mutex
	loads  int64
	closer io.Closer
}

// NewPaged 创建分页源；ra 实现 io.Closer 时 Close 会一并关闭
func NewPaged(ra io.ReaderAt, size int64, pageSize, cachePages int) (*Paged, error) {
	if size < 0 || pageSize <= 0 || cachePages <= 0 {
		return nil, coreerrors.Newf(coreerrors.CodeInvalidParam,
			"invalid paged source geometry: size=%d page=%d pages=%d", size, pageSize, cachePages)
	}
	cache, err := lru.New[int64, []byte](cachePages)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeInvalidParam, "create page cache")
	}
	p := &Paged{
		ra:       ra,
		size:     size,
		pageSize: int64(pageSize),
		pages:    cache,
	}
	if c, ok := ra.(io.Closer); ok {
		p.closer = c
	}
	return p, nil
}

// Size 源总长度
func (p *Paged) Size() int64 {
	return p.size
}

// Loads 实际从底层读取的页数
func (p *Paged) Loads() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads
}

func (p *Paged) page(index int64) ([]byte, error) {
	if data, ok := p.pages.Get(index); ok {
		return data, nil
	}
	v, err, _ := p.group.Do(strconv.FormatInt(index, 10), func() (interface{}, error) {
		if data, ok := p.pages.Get(index); ok {
			return data, nil
		}
		off := index * p.pageSize
		n := p.pageSize
		if off+n > p.size {
			n = p.size - off
		}
		buf := make([]byte, n)
		read, err := p.ra.ReadAt(buf, off)
		if int64(read) < n {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		p.pages.Add(index, buf)
		p.mu.Lock()
		p.loads++
		p.mu.Unlock()
		return buf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Prefetch 预先加载覆盖 [off, off+n) 的页
func (p *Paged) Prefetch(off, n int64) error {
	if off < 0 || n <= 0 || off >= p.size {
		return nil
	}
	end := off + n
	if end > p.size {
		end = p.size
	}
	for idx := off / p.pageSize; idx*p.pageSize < end; idx++ {
		if _, err := p.page(idx); err != nil {
			return err
		}
	}
	return nil
}

// Read 实现 io.Reader
func (p *Paged) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if p.pos >= p.size {
		return 0, io.EOF
	}
	total := 0
	for total < len(b) && p.pos < p.size {
		idx := p.pos / p.pageSize
		data, err := p.page(idx)
		if err != nil {
			if total > 0 {
				return total, nil
			}
			return 0, err
		}
		n := copy(b[total:], data[p.pos-idx*p.pageSize:])
		total += n
		p.pos += int64(n)
	}
	return total, nil
}

// Seek 实现 io.Seeker
func (p *Paged) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = p.pos + offset
	case io.SeekEnd:
		abs = p.size + offset
	default:
		return 0, coreerrors.Newf(coreerrors.CodeInvalidParam, "invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, coreerrors.New(coreerrors.CodeInvalidParam, "negative position")
	}
	p.pos = abs
	return abs, nil
}

// ReadAt 实现 io.ReaderAt（经过页缓存）
func (p *Paged) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, coreerrors.New(coreerrors.CodeInvalidParam, "negative offset")
	}
	total := 0
	for total < len(b) {
		cur := off + int64(total)
		if cur >= p.size {
			return total, io.EOF
		}
		idx := cur / p.pageSize
		data, err := p.page(idx)
		if err != nil {
			return total, err
		}
		total += copy(b[total:], data[cur-idx*p.pageSize:])
	}
	return total, nil
}

// Close 清空页缓存并关闭底层
func (p *Paged) Close() error {
	p.pages.Purge()
	if p.closer != nil {
		c := p.closer
		p.closer = nil
		return c.Close()
	}
	return nil
}
