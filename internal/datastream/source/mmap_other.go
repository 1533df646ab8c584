//go:build !unix

package source

// Mmap 非 unix 平台退化为普通文件
func Mmap(path string) (ReadSeekCloser, error) {
	return File(path)
}
