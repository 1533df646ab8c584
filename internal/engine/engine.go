// Package engine 描述原生解码引擎的会话接口与状态码映射
//
// 引擎本身是外部组件：它通过 bridge 导出的回调读取流，
// 本包只定义会话层依赖的最小接口。
package engine

import (
	"fmt"
	"sort"
	"sync"

	"rawbridge-core/internal/config/schema"
	coreerrors "rawbridge-core/internal/core/errors"
)

// Params 转发给引擎的处理参数
type Params struct {
	HalfSize    bool
	UseCameraWB bool
	UserFlip    int // -1 使用文件自带方向
	OutputBPS   int // 8 或 16
}

// ParamsFromConfig 从配置构造参数
func ParamsFromConfig(cfg schema.EngineConfig) Params {
	return Params{
		HalfSize:    cfg.HalfSize,
		UseCameraWB: cfg.UseCameraWB,
		UserFlip:    cfg.UserFlip,
		OutputBPS:   cfg.OutputBPS,
	}
}

// Info 打开后可读取的图像元数据
type Info struct {
	Make      string `json:"make" yaml:"make"`
	Model     string `json:"model" yaml:"model"`
	RawWidth  int    `json:"raw_width" yaml:"raw_width"`
	RawHeight int    `json:"raw_height" yaml:"raw_height"`
	Width     int    `json:"width" yaml:"width"`
	Height    int    `json:"height" yaml:"height"`
	Colors    int    `json:"colors" yaml:"colors"`
	Filters   uint32 `json:"filters" yaml:"filters"`
}

// ImageFormat 内存图像的数据格式
type ImageFormat int

const (
	// ImageBitmap 按行交错的像素
	ImageBitmap ImageFormat = iota
	// ImageJPEG Data 为完整的 JPEG 文件（嵌入的缩略图）
	ImageJPEG
)

func (f ImageFormat) String() string {
	switch f {
	case ImageBitmap:
		return "bitmap"
	case ImageJPEG:
		return "jpeg"
	default:
		return fmt.Sprintf("ImageFormat(%d)", int(f))
	}
}

// Image 处理后的内存图像，像素按行交错存储
type Image struct {
	Format ImageFormat
	Width  int
	Height int
	Colors int
	Bits   int
	Data   []byte
}

// Engine 单个文件的引擎状态
//
// Open 把流句柄交给引擎；此后 Open/Unpack/Process 执行期间引擎会同步回调 bridge 导出函数。
// Close 释放引擎自身状态，不释放流句柄（句柄归会话所有）。
type Engine interface {
	Open(h uintptr) Status
	Unpack() Status
	Process() Status
	Info() Info
	Image() (*Image, Status)
	// Thumbnail 解出文件内嵌的缩略图，Open 成功后可用
	Thumbnail() (*Image, Status)
	Close()
}

// Factory 创建引擎实例；返回 nil 引擎视为初始化失败
type Factory func(params Params) (Engine, error)

// Backend 已注册的引擎实现
type Backend struct {
	Name    string
	New     Factory
	Version func() string
}

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Backend)
)

// Register 注册引擎实现，同名覆盖
func Register(b Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[b.Name] = b
}

// Lookup 按名称查找引擎实现
func Lookup(name string) (Backend, error) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	b, ok := backends[name]
	if !ok {
		return Backend{}, coreerrors.Newf(coreerrors.CodeEngineInit,
			"engine backend %q not available (build with -tags libraw for the native engine)", name)
	}
	return b, nil
}

// Names 已注册的引擎名称
func Names() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewEngine 调用工厂并把 nil 引擎转成初始化错误
func NewEngine(f Factory, params Params) (Engine, error) {
	if f == nil {
		return nil, coreerrors.New(coreerrors.CodeEngineInit, "no engine factory configured")
	}
	e, err := f(params)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeEngineInit, "engine initialization failed")
	}
	if e == nil {
		return nil, coreerrors.ErrEngineInit
	}
	return e, nil
}
