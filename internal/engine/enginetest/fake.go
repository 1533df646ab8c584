// Package enginetest 提供一个纯 Go 的假引擎
//
// 假引擎像原生引擎一样只通过 bridge 导出面回调访问流，
// 用于在没有 LibRaw 的环境下驱动完整的会话流程。
//
// 文件格式：
//
//	"FAKERAW v1\n" | int32 width | int32 height | float32 gain | width*height 字节像素 [| 缩略图]
//	缩略图：4 字节标记 | int32 width | int32 height | int32 length | length 字节数据
//
// 数值均为原生字节序。标记 ThumbJPEG 以外的缩略图可以打开，但无法解出。
package enginetest

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
	"unsafe"

	"rawbridge-core/internal/bridge"
	"rawbridge-core/internal/engine"
)

// Magic 文件头
const Magic = "FAKERAW v1\n"

// BackendName 注册名
const BackendName = "fake"

const headerSize = len(Magic) + 12

// ThumbJPEG 可解出的缩略图标记
const ThumbJPEG = "JPEG"

const thumbHeaderSize = 16

// 引擎操作名，用于注入失败
const (
	OpOpen    = "open"
	OpUnpack  = "unpack"
	OpProcess   = "process"
	OpThumbnail = "thumbnail"
)

// Encode 生成假 RAW 文件内容
func Encode(width, height int, gain float32, pixels []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.Write(binary.NativeEndian.AppendUint32(nil, uint32(int32(width))))
	buf.Write(binary.NativeEndian.AppendUint32(nil, uint32(int32(height))))
	buf.Write(binary.NativeEndian.AppendUint32(nil, math.Float32bits(gain)))
	buf.Write(pixels)
	return buf.Bytes()
}

// EncodeWithThumbnail 生成带嵌入缩略图的假 RAW 文件
func EncodeWithThumbnail(width, height int, gain float32, pixels []byte, tag string, tw, th int, thumb []byte) []byte {
	buf := bytes.NewBuffer(Encode(width, height, gain, pixels))
	buf.WriteString((tag + "\x00\x00\x00\x00")[:4])
	buf.Write(binary.NativeEndian.AppendUint32(nil, uint32(int32(tw))))
	buf.Write(binary.NativeEndian.AppendUint32(nil, uint32(int32(th))))
	buf.Write(binary.NativeEndian.AppendUint32(nil, uint32(int32(len(thumb)))))
	buf.Write(thumb)
	return buf.Bytes()
}

// thumbnail 文件内嵌缩略图的位置
type thumbnail struct {
	tag           string
	width, height int
	offset        int64
	length        int
}

// Engine 假引擎实例
type Engine struct {
	surface *bridge.Surface
	params  engine.Params
	fail    map[string]engine.Status

	h      uintptr
	state  string
	info   engine.Info
	gain   float32
	offset int64
	thumb  *thumbnail
	pixels []byte
	image  *engine.Image

	calls  map[string]int
	closes atomic.Int32
}

// New 创建假引擎，fail 中的操作直接返回对应状态码
func New(surface *bridge.Surface, params engine.Params, fail map[string]engine.Status) *Engine {
	return &Engine{
		surface: surface,
		params:  params,
		fail:    fail,
		calls:   make(map[string]int),
	}
}

func (e *Engine) injected(op string) (engine.Status, bool) {
	e.calls[op]++
	st, ok := e.fail[op]
	return st, ok
}

// Open 读取并校验文件头
func (e *Engine) Open(h uintptr) engine.Status {
	if st, ok := e.injected(OpOpen); ok {
		return st
	}
	if e.state != "" {
		return engine.StatusOutOfOrderCall
	}
	s := e.surface

	if s.Valid(h) == 0 {
		return engine.StatusIOError
	}
	size := s.Size(h)
	if size < 0 {
		return engine.StatusIOError
	}
	if s.Seek(h, 0, 0) != 0 {
		return engine.StatusIOError
	}

	line := make([]byte, 32)
	if s.Gets(h, unsafe.Pointer(&line[0]), int32(len(line))) == nil {
		return engine.StatusFileUnsupported
	}
	if n := bytes.IndexByte(line, 0); n < 0 || string(line[:n]) != Magic {
		return engine.StatusFileUnsupported
	}

	var width, height int32
	var gain float32
	if s.ScanOne(h, "%d", unsafe.Pointer(&width)) != 1 ||
		s.ScanOne(h, "%d", unsafe.Pointer(&height)) != 1 ||
		s.ScanOne(h, "%f", unsafe.Pointer(&gain)) != 1 {
		return engine.StatusDataError
	}
	if width <= 0 || height <= 0 {
		return engine.StatusDataError
	}
	if int64(width)*int64(height) > math.MaxInt32 {
		return engine.StatusTooBig
	}

	offset := s.Tell(h)
	if offset != int64(headerSize) {
		return engine.StatusIOError
	}
	pixelsEnd := offset + int64(width)*int64(height)
	thumb, st := e.readThumbnailHeader(h, pixelsEnd, size)
	if !st.OK() {
		return st
	}

	e.h = h
	e.gain = gain
	e.offset = offset
	e.thumb = thumb
	e.info = engine.Info{
		Make:      "Fake",
		Model:     "FAKERAW v1",
		RawWidth:  int(width),
		RawHeight: int(height),
		Width:     int(width),
		Height:    int(height),
		Colors:    1,
	}
	if e.params.HalfSize {
		e.info.Width = max(1, e.info.Width/2)
		e.info.Height = max(1, e.info.Height/2)
	}
	e.state = OpOpen
	return engine.StatusSuccess
}

// Unpack 读取全部像素并确认已到文件末尾
func (e *Engine) Unpack() engine.Status {
	if st, ok := e.injected(OpUnpack); ok {
		return st
	}
	if e.state != OpOpen {
		return engine.StatusOutOfOrderCall
	}
	s := e.surface
	if s.Seek(e.h, e.offset, 0) != 0 {
		return engine.StatusIOError
	}

	n := e.info.RawWidth * e.info.RawHeight
	pixels := make([]byte, n)
	if s.Read(e.h, unsafe.Pointer(&pixels[0]), 1, uintptr(n)) != int32(n) {
		return engine.StatusDataError
	}
	if e.thumb == nil {
		if s.GetChar(e.h) != -1 || s.EOF(e.h) != 1 {
			return engine.StatusDataError
		}
	} else if s.Tell(e.h) != e.offset+int64(n) {
		return engine.StatusIOError
	}

	e.pixels = pixels
	e.state = OpUnpack
	return engine.StatusSuccess
}

// Process 按增益生成输出图像
func (e *Engine) Process() engine.Status {
	if st, ok := e.injected(OpProcess); ok {
		return st
	}
	if e.state != OpUnpack {
		return engine.StatusOutOfOrderCall
	}

	step := 1
	if e.params.HalfSize {
		step = 2
	}
	bits := 8
	if e.params.OutputBPS == 16 {
		bits = 16
	}

	w, h := e.info.Width, e.info.Height
	data := make([]byte, 0, w*h*bits/8)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(e.pixels[(y*step)*e.info.RawWidth+x*step]) * float64(e.gain)
			if bits == 16 {
				data = binary.NativeEndian.AppendUint16(data, uint16(min(math.Round(v*257), math.MaxUint16)))
			} else {
				data = append(data, byte(min(math.Round(v), math.MaxUint8)))
			}
		}
	}

	e.image = &engine.Image{Width: w, Height: h, Colors: 1, Bits: bits, Data: data}
	e.state = OpProcess
	return engine.StatusSuccess
}

// readThumbnailHeader 解析像素之后的可选缩略图头
func (e *Engine) readThumbnailHeader(h uintptr, pixelsEnd, size int64) (*thumbnail, engine.Status) {
	rest := size - pixelsEnd
	switch {
	case rest == 0:
		return nil, engine.StatusSuccess
	case rest < thumbHeaderSize:
		return nil, engine.StatusDataError
	}

	s := e.surface
	if s.Seek(h, pixelsEnd, 0) != 0 {
		return nil, engine.StatusIOError
	}
	var tag [4]byte
	if s.Read(h, unsafe.Pointer(&tag[0]), 1, uintptr(len(tag))) != int32(len(tag)) {
		return nil, engine.StatusDataError
	}
	var tw, th, length int32
	if s.ScanOne(h, "%d", unsafe.Pointer(&tw)) != 1 ||
		s.ScanOne(h, "%d", unsafe.Pointer(&th)) != 1 ||
		s.ScanOne(h, "%d", unsafe.Pointer(&length)) != 1 {
		return nil, engine.StatusDataError
	}
	if length <= 0 || rest != thumbHeaderSize+int64(length) {
		return nil, engine.StatusDataError
	}
	return &thumbnail{
		tag:    string(tag[:]),
		width:  int(tw),
		height: int(th),
		offset: pixelsEnd + thumbHeaderSize,
		length: int(length),
	}, engine.StatusSuccess
}

// Thumbnail 读取嵌入缩略图，Open 之后任意阶段可用
func (e *Engine) Thumbnail() (*engine.Image, engine.Status) {
	if st, ok := e.injected(OpThumbnail); ok {
		return nil, st
	}
	switch e.state {
	case OpOpen, OpUnpack, OpProcess:
	default:
		return nil, engine.StatusOutOfOrderCall
	}
	if e.thumb == nil {
		return nil, engine.StatusNoThumbnail
	}
	if e.thumb.tag != ThumbJPEG {
		return nil, engine.StatusUnsupportedThumbnail
	}

	s := e.surface
	if s.Seek(e.h, e.thumb.offset, 0) != 0 {
		return nil, engine.StatusIOError
	}
	data := make([]byte, e.thumb.length)
	if s.Read(e.h, unsafe.Pointer(&data[0]), 1, uintptr(len(data))) != int32(len(data)) {
		return nil, engine.StatusDataError
	}
	return &engine.Image{
		Format: engine.ImageJPEG,
		Width:  e.thumb.width,
		Height: e.thumb.height,
		Colors: 3,
		Bits:   8,
		Data:   data,
	}, engine.StatusSuccess
}

// Info 打开后的元数据
func (e *Engine) Info() engine.Info {
	return e.info
}

// Image 处理结果
func (e *Engine) Image() (*engine.Image, engine.Status) {
	if e.image == nil {
		return nil, engine.StatusRequestForNonexistentImage
	}
	return e.image, engine.StatusSuccess
}

// Close 只释放引擎自身状态，从不调用 Drop
func (e *Engine) Close() {
	e.closes.Add(1)
	e.pixels = nil
	e.image = nil
	e.thumb = nil
	e.h = 0
	e.state = "closed"
}

// Closes Close 被调用的次数
func (e *Engine) Closes() int {
	return int(e.closes.Load())
}

// Calls 引擎操作被调用的次数
func (e *Engine) Calls(op string) int {
	return e.calls[op]
}

// Handle Open 时收到的句柄
func (e *Engine) Handle() uintptr {
	return e.h
}

// ============================================================================
// Recorder
// ============================================================================

// Recorder 记录工厂创建的每个假引擎
type Recorder struct {
	Surface *bridge.Surface
	// Fail 新建引擎的失败注入表
	Fail map[string]engine.Status
	// InitFails 为 true 时工厂返回 nil 引擎
	InitFails bool

	mu      sync.Mutex
	engines []*Engine
}

// NewRecorder 使用默认导出面
func NewRecorder() *Recorder {
	return &Recorder{Surface: bridge.Default()}
}

// Factory 引擎工厂
func (r *Recorder) Factory() engine.Factory {
	return func(params engine.Params) (engine.Engine, error) {
		if r.InitFails {
			return nil, nil
		}
		e := New(r.Surface, params, r.Fail)
		r.mu.Lock()
		r.engines = append(r.engines, e)
		r.mu.Unlock()
		return e, nil
	}
}

// Engines 已创建的引擎
func (r *Recorder) Engines() []*Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Engine(nil), r.engines...)
}

// Last 最近创建的引擎
func (r *Recorder) Last() *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.engines) == 0 {
		return nil
	}
	return r.engines[len(r.engines)-1]
}

// Register 以 BackendName 注册到引擎表
func Register() {
	r := NewRecorder()
	engine.Register(engine.Backend{
		Name:    BackendName,
		New:     r.Factory(),
		Version: func() string { return "fake-1.0" },
	})
}
