// Package datastream 实现原生解码引擎所需的虚拟输入流语义
//
// 任意 io.ReadSeeker 经 Stream 包装后，提供与 C stdio 文件对象逐字节一致的
// read/seek/tell/size/eof/get_char/gets/scanf_one 行为。
//
// Stream 不是并发安全的：Length 与 AtEnd 依赖 "保存位置 → 跳到末尾 → 恢复" 序列，
// 期间任何其他调用者的 seek 都会破坏恢复的位置。一个 Stream 在任意时刻只能有一个使用者。
package datastream

import (
	"errors"
	"io"
	"syscall"
)

// Whence 取值，与 C 的 SEEK_SET/SEEK_CUR/SEEK_END 一致
const (
	SeekSet = io.SeekStart
	SeekCur = io.SeekCurrent
	SeekEnd = io.SeekEnd
)

// Source 宿主提供的字节源
type Source interface {
	io.Reader
	io.Seeker
}

// BufferedSource 可直接暴露内部缓冲区的字节源
type BufferedSource interface {
	Source

	// Fill 返回当前已缓冲但未消费的字节，缓冲区为空时先从底层读取
	// 返回空切片且 err == nil 表示已到流末尾
	Fill() ([]byte, error)

	// Consume 标记前 n 个缓冲字节已被消费
	Consume(n int)
}

// ErrInterrupted 可重试的中断错误
var ErrInterrupted = errors.New("datastream: operation interrupted")

func isInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, syscall.EINTR)
}
