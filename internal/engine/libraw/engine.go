//go:build libraw

package libraw

/*
#cgo pkg-config: libraw
#cgo CXXFLAGS: -std=c++11
#cgo LDFLAGS: -lstdc++
#include <stdlib.h>
#include "io.h"
*/
import "C"

import (
	"unsafe"

	"rawbridge-core/internal/engine"
)

func init() {
	engine.Register(engine.Backend{
		Name:    BackendName,
		New:     New,
		Version: Version,
	})
}

// Version LibRaw 版本字符串
func Version() string {
	return C.GoString(C.libraw_version())
}

// Engine 一个 libraw_data_t 实例
type Engine struct {
	data *C.libraw_data_t
	io   unsafe.Pointer
}

// New 初始化 LibRaw 并写入处理参数
func New(params engine.Params) (engine.Engine, error) {
	data := C.libraw_init(0)
	if data == nil {
		return nil, nil
	}
	data.params.half_size = cBool(params.HalfSize)
	data.params.use_camera_wb = cBool(params.UseCameraWB)
	data.params.user_flip = C.int(params.UserFlip)
	if params.OutputBPS > 0 {
		data.params.output_bps = C.int(params.OutputBPS)
	}
	return &Engine{data: data}, nil
}

func cBool(v bool) C.int {
	if v {
		return 1
	}
	return 0
}

// Open 用句柄创建 BridgeDatastream 并交给 LibRaw
func (e *Engine) Open(h uintptr) engine.Status {
	if e.data == nil || e.io != nil {
		return engine.StatusOutOfOrderCall
	}
	e.io = C.rawbridge_new_io(C.uintptr_t(h))
	if e.io == nil {
		return engine.StatusInsufficientMemory
	}
	return engine.Status(C.rawbridge_open_io(e.data, e.io))
}

// Unpack 解包原始数据
func (e *Engine) Unpack() engine.Status {
	if e.data == nil {
		return engine.StatusOutOfOrderCall
	}
	return engine.Status(C.libraw_unpack(e.data))
}

// Process 执行 dcraw 处理流程
func (e *Engine) Process() engine.Status {
	if e.data == nil {
		return engine.StatusOutOfOrderCall
	}
	return engine.Status(C.libraw_dcraw_process(e.data))
}

// Info 读取 idata 与 sizes
func (e *Engine) Info() engine.Info {
	if e.data == nil {
		return engine.Info{}
	}
	id := &e.data.idata
	sz := &e.data.sizes
	return engine.Info{
		Make:      C.GoString(&id.make[0]),
		Model:     C.GoString(&id.model[0]),
		RawWidth:  int(sz.raw_width),
		RawHeight: int(sz.raw_height),
		Width:     int(sz.width),
		Height:    int(sz.height),
		Colors:    int(id.colors),
		Filters:   uint32(id.filters),
	}
}

// Image 生成内存图像并复制到 Go 内存，原生缓冲区随即释放
func (e *Engine) Image() (*engine.Image, engine.Status) {
	if e.data == nil {
		return nil, engine.StatusOutOfOrderCall
	}
	var errc C.int
	return memImage(C.libraw_dcraw_make_mem_image(e.data, &errc), errc)
}

// Thumbnail 解出嵌入缩略图；JPEG 缩略图原样返回文件字节
func (e *Engine) Thumbnail() (*engine.Image, engine.Status) {
	if e.data == nil || e.io == nil {
		return nil, engine.StatusOutOfOrderCall
	}
	if st := engine.Status(C.libraw_unpack_thumb(e.data)); !st.OK() {
		return nil, st
	}
	var errc C.int
	return memImage(C.libraw_dcraw_make_mem_thumb(e.data, &errc), errc)
}

func memImage(img *C.libraw_processed_image_t, errc C.int) (*engine.Image, engine.Status) {
	if img == nil {
		if errc == 0 {
			return nil, engine.StatusUnspecifiedError
		}
		return nil, engine.Status(errc)
	}
	defer C.libraw_dcraw_clear_mem(img)

	format := engine.ImageBitmap
	if img._type == C.LIBRAW_IMAGE_JPEG {
		format = engine.ImageJPEG
	}
	return &engine.Image{
		Format: format,
		Width:  int(img.width),
		Height: int(img.height),
		Colors: int(img.colors),
		Bits:   int(img.bits),
		Data:   C.GoBytes(unsafe.Pointer(&img.data[0]), C.int(img.data_size)),
	}, engine.StatusSuccess
}

// Close 释放 LibRaw 状态后删除 BridgeDatastream；句柄不在这里释放
func (e *Engine) Close() {
	if e.data != nil {
		C.libraw_close(e.data)
		e.data = nil
	}
	if e.io != nil {
		C.rawbridge_free_io(e.io)
		e.io = nil
	}
}
