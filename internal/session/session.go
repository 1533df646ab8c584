// Package session 把引擎状态与流句柄绑定成一个有序的生命周期
//
//	Uninitialized → Opened → Unpacked → Processed → Closed
//
// 会话独占它注册的句柄，并在 Close 时恰好释放一次；引擎自身的清理从不释放句柄。
// 一个会话可以在操作之间换 goroutine，但任意时刻只能执行一个操作。
package session

import (
	"sync/atomic"
	"time"

	"rawbridge-core/internal/config/schema"
	"rawbridge-core/internal/core/dispose"
	coreerrors "rawbridge-core/internal/core/errors"
	"rawbridge-core/internal/core/events"
	"rawbridge-core/internal/core/idgen"
	corelog "rawbridge-core/internal/core/log"
	"rawbridge-core/internal/core/metrics"
	"rawbridge-core/internal/datastream"
	"rawbridge-core/internal/datastream/handle"
	"rawbridge-core/internal/datastream/source"
	"rawbridge-core/internal/engine"
)

// Config 会话配置
type Config struct {
	// Engine 引擎工厂，必填
	Engine engine.Factory
	Params engine.Params
	Stream schema.StreamConfig
	// Registry 为空时使用导出回调共享的进程级句柄表
	Registry *handle.Registry
	// Events 可选，非空时发布生命周期事件
	Events events.EventBus
}

// Session 单个文件的解码会话
type Session struct {
	closer dispose.Dispose

	id       string
	cfg      Config
	registry *handle.Registry
	eng      engine.Engine
	logger   corelog.Logger

	h      handle.Handle
	source string
	image  *engine.Image

	state atomic.Int32
	busy  atomic.Bool
	// failed 引擎失败后只允许 Close
	failed   bool
	opened   bool
	openedAt time.Time
}

// New 初始化引擎状态；引擎初始化失败是唯一的致命错误
func New(cfg Config) (*Session, error) {
	eng, err := engine.NewEngine(cfg.Engine, cfg.Params)
	if err != nil {
		return nil, err
	}

	registry := cfg.Registry
	if registry == nil {
		registry = handle.Default()
	}

	s := &Session{
		id:       idgen.NewSessionID(),
		cfg:      cfg,
		registry: registry,
		eng:      eng,
	}
	s.logger = corelog.WithField("session", s.id)

	// 按注册的相反顺序执行：先停引擎，再释放句柄
	s.closer.AddCleanHandler(s.releaseHandle)
	s.closer.AddCleanHandler(func() error {
		s.eng.Close()
		s.image = nil
		return nil
	})
	return s, nil
}

// ID 会话 ID
func (s *Session) ID() string {
	return s.id
}

// State 当前状态
func (s *Session) State() State {
	return State(s.state.Load())
}

// Handle Open 注册的流句柄，未打开时为 handle.Invalid
func (s *Session) Handle() handle.Handle {
	return s.h
}

// Source 数据源名称
func (s *Session) Source() string {
	return s.source
}

// ============================================================================
// 调用保护
// ============================================================================

func (s *Session) enter(op string) error {
	if !s.busy.CompareAndSwap(false, true) {
		return coreerrors.Newf(coreerrors.CodeConcurrentUse, "%s called while another operation is in flight", op).
			WithDetailString("session", s.id)
	}
	return nil
}

func (s *Session) leave() {
	s.busy.Store(false)
}

func (s *Session) outOfOrder(op string) error {
	return coreerrors.NewOutOfOrderError(op, s.State().String()).
		WithDetailInt(engine.DetailStatus, int64(engine.StatusOutOfOrderCall)).
		WithDetailString("session", s.id)
}

// expect 校验前置状态；引擎失败过的会话只允许 Close
func (s *Session) expect(op string, want State) error {
	if s.State() != want || s.failed {
		return s.outOfOrder(op)
	}
	return nil
}

func (s *Session) publish(eventType, op string, err error) {
	if s.cfg.Events == nil {
		return
	}
	ev := events.NewSessionEvent(eventType, s.id, s.source, op)
	if err != nil {
		ev.WithError(engine.StatusOf(err).String(), err)
	}
	if perr := s.cfg.Events.Publish(ev); perr != nil {
		s.logger.WithError(perr).Debug("failed to publish session event")
	}
}

func (s *Session) statusError(op string, st engine.Status) error {
	metrics.RecordEngineStatus(op, st.String())
	e := st.AsError()
	if e == nil {
		return nil
	}
	e = e.WithDetailString("op", op).WithDetailString("session", s.id)
	if s.source != "" {
		e = e.WithDetailString("source", s.source)
	}
	return e
}

// ============================================================================
// 生命周期
// ============================================================================

// Open 把数据源交给引擎；失败时会话进入 Closed 且句柄已释放
func (s *Session) Open(src datastream.Source, name string) error {
	if err := s.enter("open"); err != nil {
		return err
	}
	defer s.leave()

	if err := s.expect("open", StateUninitialized); err != nil {
		return err
	}
	return s.openLocked(src, name)
}

func (s *Session) openLocked(src datastream.Source, name string) error {
	stream := datastream.NewStream(src,
		datastream.WithBufferSize(s.cfg.Stream.BufferSize),
		datastream.WithMaxLine(s.cfg.Stream.MaxLine),
		datastream.WithName(name),
	)
	s.source = name
	s.h = s.registry.Register(stream)
	s.logger = s.logger.WithFields(map[string]interface{}{
		"handle": uint64(s.h),
		"source": name,
	})

	if err := s.statusError("open", s.eng.Open(uintptr(s.h))); err != nil {
		s.logger.WithError(err).Warn("engine rejected stream")
		s.publish(events.EventSessionFailed, "open", err)
		s.closeLocked()
		return err
	}

	s.opened = true
	s.openedAt = time.Now()
	metrics.SessionOpened()
	s.state.Store(int32(StateOpened))
	s.logger.Debug("session opened")
	s.publish(events.EventSessionOpened, "open", nil)
	return nil
}

// OpenFile 按流配置打开文件（mmap / 分页 / 普通文件）后调用 Open
func (s *Session) OpenFile(path string) error {
	if err := s.enter("open"); err != nil {
		return err
	}
	defer s.leave()

	if err := s.expect("open", StateUninitialized); err != nil {
		return err
	}
	src, err := source.Open(path, s.cfg.Stream)
	if err != nil {
		s.logger.WithError(err).Warnf("failed to open %s", path)
		_ = s.closeLocked()
		return coreerrors.Wrapf(err, coreerrors.CodeIOError, "open %s", path).
			WithDetailString("source", path).
			WithDetailString("session", s.id)
	}
	return s.openLocked(src, path)
}

// OpenBytes 打开内存数据
func (s *Session) OpenBytes(data []byte, name string) error {
	return s.Open(source.Bytes(data), name)
}

// Unpack Opened → Unpacked
func (s *Session) Unpack() error {
	if err := s.enter("unpack"); err != nil {
		return err
	}
	defer s.leave()

	if err := s.expect("unpack", StateOpened); err != nil {
		return err
	}
	if err := s.statusError("unpack", s.eng.Unpack()); err != nil {
		s.failed = true
		s.logger.WithError(err).Warn("unpack failed")
		s.publish(events.EventSessionFailed, "unpack", err)
		return err
	}
	s.state.Store(int32(StateUnpacked))
	return nil
}

// Process Unpacked → Processed，并取得内存图像
func (s *Session) Process() error {
	if err := s.enter("process"); err != nil {
		return err
	}
	defer s.leave()

	if err := s.expect("process", StateUnpacked); err != nil {
		return err
	}
	if err := s.statusError("process", s.eng.Process()); err != nil {
		s.failed = true
		s.logger.WithError(err).Warn("process failed")
		s.publish(events.EventSessionFailed, "process", err)
		return err
	}
	img, st := s.eng.Image()
	if err := s.statusError("image", st); err != nil {
		s.failed = true
		s.publish(events.EventSessionFailed, "image", err)
		return err
	}

	s.image = img
	s.state.Store(int32(StateProcessed))
	metrics.ObserveDecode(time.Since(s.openedAt).Seconds())
	s.logger.Debugf("processed %dx%d image (%d bits)", img.Width, img.Height, img.Bits)
	s.publish(events.EventSessionProcessed, "process", nil)
	return nil
}

// Info 图像元数据，Open 成功后可用
func (s *Session) Info() (engine.Info, error) {
	if err := s.enter("info"); err != nil {
		return engine.Info{}, err
	}
	defer s.leave()

	if s.failed {
		return engine.Info{}, s.outOfOrder("info")
	}
	switch s.State() {
	case StateOpened, StateUnpacked, StateProcessed:
		return s.eng.Info(), nil
	default:
		return engine.Info{}, s.outOfOrder("info")
	}
}

// Thumbnail 文件内嵌的缩略图，Open 成功后可用
// 没有或无法解出缩略图不算引擎失败，会话仍可继续处理
func (s *Session) Thumbnail() (*engine.Image, error) {
	if err := s.enter("thumbnail"); err != nil {
		return nil, err
	}
	defer s.leave()

	if s.failed {
		return nil, s.outOfOrder("thumbnail")
	}
	switch s.State() {
	case StateOpened, StateUnpacked, StateProcessed:
	default:
		return nil, s.outOfOrder("thumbnail")
	}
	thumb, st := s.eng.Thumbnail()
	if err := s.statusError("thumbnail", st); err != nil {
		s.logger.WithError(err).Debug("thumbnail unavailable")
		return nil, err
	}
	return thumb, nil
}

// Image 处理结果，仅在 Processed 状态可用；Close 后失效
func (s *Session) Image() (*engine.Image, error) {
	if err := s.enter("image"); err != nil {
		return nil, err
	}
	defer s.leave()

	if err := s.expect("image", StateProcessed); err != nil {
		return nil, err
	}
	return s.image, nil
}

// Close 任意状态 → Closed，可重复调用
func (s *Session) Close() error {
	if err := s.enter("close"); err != nil {
		return err
	}
	defer s.leave()
	return s.closeLocked()
}

func (s *Session) closeLocked() error {
	if s.closer.IsClosed() {
		return nil
	}
	s.state.Store(int32(StateClosed))
	err := s.closer.CloseWithError()
	if s.opened {
		metrics.SessionClosed()
	}
	s.publish(events.EventSessionClosed, "close", err)
	s.logger.Debug("session closed")
	return err
}

// Dispose 实现 dispose.Disposable，供 ResourceManager 统一关闭
func (s *Session) Dispose() error {
	return s.Close()
}

var _ dispose.Disposable = (*Session)(nil)

func (s *Session) releaseHandle() error {
	if s.h == handle.Invalid {
		return nil
	}
	return s.registry.Release(s.h)
}
