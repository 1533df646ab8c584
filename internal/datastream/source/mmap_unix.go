//go:build unix

package source

import (
	"bytes"
	"os"

	"golang.org/x/sys/unix"

	coreerrors "rawbridge-core/internal/core/errors"
)

// MappedFile 只读内存映射文件
type MappedFile struct {
	*bytes.Reader
	data []byte
}

// Mmap 把整个文件只读映射到内存，空文件退化为空的内存源
func Mmap(path string) (ReadSeekCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeIOError, "open %s", path)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeIOError, "stat %s", path)
	}
	size := st.Size()
	if size == 0 {
		return &MappedFile{Reader: bytes.NewReader(nil)}, nil
	}
	if int64(int(size)) != size {
		return nil, coreerrors.Newf(coreerrors.CodeResourceExhausted, "%s too large to map", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeIOError, "mmap %s", path)
	}
	// 顺序解码为主，提示内核预读；失败不影响正确性
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)

	return &MappedFile{Reader: bytes.NewReader(data), data: data}, nil
}

// Close 解除映射，重复调用无副作用
func (m *MappedFile) Close() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	m.Reader = bytes.NewReader(nil)
	if err := unix.Munmap(data); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeIOError, "munmap")
	}
	return nil
}
