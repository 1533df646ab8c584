// Package source 提供可交给流适配层的字节源实现
//
// 所有实现都是 io.ReadSeeker，需要释放资源的同时实现 io.Closer。
package source

import (
	"bytes"
	"io"
	"os"

	"rawbridge-core/internal/config/schema"
	coreerrors "rawbridge-core/internal/core/errors"
)

// ReadSeekCloser 带释放能力的字节源
type ReadSeekCloser interface {
	io.ReadSeeker
	io.Closer
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

// Bytes 内存字节源
func Bytes(data []byte) ReadSeekCloser {
	return nopCloser{bytes.NewReader(data)}
}

// File 以只读方式打开文件
func File(path string) (ReadSeekCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeIOError, "open %s", path)
	}
	return f, nil
}

// Open 按流配置为 path 选择字节源：
// stream.mmap 开启时使用内存映射；否则 page_cache_pages > 0 时使用分页缓存并预读首页；
// 其余情况直接使用文件
func Open(path string, cfg schema.StreamConfig) (ReadSeekCloser, error) {
	if cfg.Mmap {
		return Mmap(path)
	}
	if cfg.PageCachePages > 0 && cfg.PageSize > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, coreerrors.Wrapf(err, coreerrors.CodeIOError, "open %s", path)
		}
		st, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, coreerrors.Wrapf(err, coreerrors.CodeIOError, "stat %s", path)
		}
		p, err := NewPaged(f, st.Size(), cfg.PageSize, cfg.PageCachePages)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		// 引擎 Open 总是先读文件头
		if err := p.Prefetch(0, int64(cfg.PageSize)); err != nil {
			_ = p.Close()
			return nil, coreerrors.Wrapf(err, coreerrors.CodeIOError, "read header page of %s", path)
		}
		return p, nil
	}
	return File(path)
}
