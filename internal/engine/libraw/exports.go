//go:build libraw

package libraw

/*
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"rawbridge-core/internal/bridge"
)

// ============================================================================
// LibRaw 数据流回调
// 每个函数只做类型转换，语义全部在 bridge.Surface 中
// ============================================================================

//export lod_valid
func lod_valid(h C.uintptr_t) C.int32_t {
	return C.int32_t(bridge.Default().Valid(uintptr(h)))
}

//export lod_read
func lod_read(h C.uintptr_t, buf unsafe.Pointer, size, count C.size_t) C.int32_t {
	return C.int32_t(bridge.Default().Read(uintptr(h), buf, uintptr(size), uintptr(count)))
}

//export lod_seek
func lod_seek(h C.uintptr_t, offset C.int64_t, whence C.uint32_t) C.int32_t {
	return C.int32_t(bridge.Default().Seek(uintptr(h), int64(offset), uint32(whence)))
}

//export lod_tell
func lod_tell(h C.uintptr_t) C.int64_t {
	return C.int64_t(bridge.Default().Tell(uintptr(h)))
}

//export lod_size
func lod_size(h C.uintptr_t) C.int64_t {
	return C.int64_t(bridge.Default().Size(uintptr(h)))
}

//export lod_eof
func lod_eof(h C.uintptr_t) C.int32_t {
	return C.int32_t(bridge.Default().EOF(uintptr(h)))
}

//export lod_get_char
func lod_get_char(h C.uintptr_t) C.int {
	return C.int(bridge.Default().GetChar(uintptr(h)))
}

//export lod_gets
func lod_gets(h C.uintptr_t, buf *C.char, size C.int) *C.char {
	return (*C.char)(bridge.Default().Gets(uintptr(h), unsafe.Pointer(buf), int32(size)))
}

//export lod_scanf_one
func lod_scanf_one(h C.uintptr_t, format *C.char, val unsafe.Pointer) C.int {
	if format == nil {
		return -1
	}
	return C.int(bridge.Default().ScanOne(uintptr(h), C.GoString(format), val))
}

//export lod_drop
func lod_drop(h C.uintptr_t) {
	bridge.Default().Drop(uintptr(h))
}
