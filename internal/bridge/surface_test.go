package bridge

import (
	"encoding/binary"
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rawbridge-core/internal/core/metrics"
	"rawbridge-core/internal/core/safe"
	"rawbridge-core/internal/datastream"
	"rawbridge-core/internal/datastream/datastreamtest"
	"rawbridge-core/internal/datastream/handle"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 测试辅助
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func newSurface(t *testing.T, data string) (*Surface, uintptr) {
	t.Helper()
	s := NewSurface(handle.NewRegistry())
	h := s.Registry().RegisterDetached(datastream.NewStream(datastreamtest.NewCountingSource([]byte(data))))
	return s, uintptr(h)
}

func newSurfaceFrom(t *testing.T, src datastream.Source) (*Surface, uintptr) {
	t.Helper()
	s := NewSurface(handle.NewRegistry())
	h := s.Registry().RegisterDetached(datastream.NewStream(src))
	return s, uintptr(h)
}

func ptr(b []byte) unsafe.Pointer {
	return unsafe.Pointer(&b[0])
}

// cString 取 NUL 之前的内容
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// valid / size / tell / seek / eof
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func TestSurface_Valid(t *testing.T) {
	s, h := newSurface(t, "abc")
	assert.Equal(t, int32(1), s.Valid(h))

	empty, eh := newSurface(t, "")
	assert.Equal(t, int32(0), empty.Valid(eh))

	src := datastreamtest.NewFailingSource([]byte("abc"))
	src.FailSeekEnd = true
	broken, bh := newSurfaceFrom(t, src)
	assert.Equal(t, int32(0), broken.Valid(bh))
}

func TestSurface_SeekTellSize(t *testing.T) {
	s, h := newSurface(t, "0123456789")

	assert.Equal(t, int64(10), s.Size(h))
	assert.Equal(t, int32(0), s.Seek(h, 4, datastream.SeekSet))
	assert.Equal(t, int64(4), s.Tell(h))
	assert.Equal(t, int32(0), s.Seek(h, 2, datastream.SeekCur))
	assert.Equal(t, int64(6), s.Tell(h))
	assert.Equal(t, int32(0), s.Seek(h, -1, datastream.SeekEnd))
	assert.Equal(t, int64(9), s.Tell(h))

	// size 不改变位置
	assert.Equal(t, int64(10), s.Size(h))
	assert.Equal(t, int64(9), s.Tell(h))
}

func TestSurface_SeekUnknownWhence(t *testing.T) {
	s, h := newSurface(t, "0123456789")
	require.Equal(t, int32(0), s.Seek(h, 3, datastream.SeekSet))

	assert.Equal(t, int32(0), s.Seek(h, 5, 7))
	assert.Equal(t, int64(3), s.Tell(h), "unknown whence must not move")
}

func TestSurface_SeekFailure(t *testing.T) {
	s, h := newSurface(t, "0123456789")
	assert.Equal(t, int32(-1), s.Seek(h, -5, datastream.SeekSet))
}

func TestSurface_EOF(t *testing.T) {
	s, h := newSurface(t, "ab")
	assert.Equal(t, int32(0), s.EOF(h))

	buf := make([]byte, 2)
	require.Equal(t, int32(2), s.Read(h, ptr(buf), 1, 2))
	assert.Equal(t, int32(1), s.EOF(h))

	src := datastreamtest.NewFailingSource([]byte("ab"))
	src.FailSeekEnd = true
	broken, bh := newSurfaceFrom(t, src)
	assert.Equal(t, int32(0), broken.EOF(bh), "errors read as not-at-end")
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// read / get_char
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func TestSurface_Read(t *testing.T) {
	s, h := newSurface(t, "abcdefgh")

	buf := make([]byte, 6)
	assert.Equal(t, int32(6), s.Read(h, ptr(buf), 2, 3))
	assert.Equal(t, "abcdef", string(buf))
	assert.Equal(t, int64(6), s.Tell(h))

	// 剩余不足：失败
	assert.Equal(t, int32(-1), s.Read(h, ptr(buf), 1, 6))
}

func TestSurface_ReadZeroIsNoop(t *testing.T) {
	s, h := newSurface(t, "abc")
	assert.Equal(t, int32(0), s.Read(h, nil, 0, 10))
	assert.Equal(t, int32(0), s.Read(h, nil, 10, 0))
	assert.Equal(t, int64(0), s.Tell(h))
}

func TestSurface_ReadOverflow(t *testing.T) {
	s, h := newSurface(t, "abc")
	buf := make([]byte, 1)
	assert.Equal(t, int32(-1), s.Read(h, ptr(buf), 1<<20, 1<<20))
	assert.Equal(t, int32(-1), s.Read(h, ptr(buf), math.MaxInt32, 2))
	assert.Equal(t, int64(0), s.Tell(h))
}

func TestSurface_ReadNilBuffer(t *testing.T) {
	s, h := newSurface(t, "abc")
	assert.Equal(t, int32(-1), s.Read(h, nil, 1, 1))
}

func TestSurface_GetChar(t *testing.T) {
	s, h := newSurface(t, "\xffA")
	assert.Equal(t, int32(255), s.GetChar(h))
	assert.Equal(t, int32('A'), s.GetChar(h))
	assert.Equal(t, int32(-1), s.GetChar(h))
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// gets
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func TestSurface_GetsLines(t *testing.T) {
	s, h := newSurface(t, "line1\nline2")
	buf := make([]byte, 16)

	require.Equal(t, ptr(buf), s.Gets(h, ptr(buf), int32(len(buf))))
	assert.Equal(t, "line1\n", cString(buf))

	require.Equal(t, ptr(buf), s.Gets(h, ptr(buf), int32(len(buf))))
	assert.Equal(t, "line2", cString(buf))

	assert.Equal(t, unsafe.Pointer(nil), s.Gets(h, ptr(buf), int32(len(buf))), "at end")
}

func TestSurface_GetsTruncatesAndTerminates(t *testing.T) {
	s, h := newSurface(t, "abcdef\n")
	buf := []byte{'x', 'x', 'x', 'x', 'x'}

	require.NotNil(t, s.Gets(h, ptr(buf), 4))
	assert.Equal(t, "abc", cString(buf))
	assert.Equal(t, byte('x'), buf[4], "never writes past size")

	require.NotNil(t, s.Gets(h, ptr(buf), 5))
	assert.Equal(t, "def\n", cString(buf))
}

func TestSurface_GetsTinyBuffers(t *testing.T) {
	s, h := newSurface(t, "ab")
	buf := []byte{'x', 'x'}

	assert.Equal(t, unsafe.Pointer(nil), s.Gets(h, ptr(buf), 0))
	assert.Equal(t, unsafe.Pointer(nil), s.Gets(h, nil, 8))

	require.NotNil(t, s.Gets(h, ptr(buf), 1))
	assert.Equal(t, byte(0), buf[0])
	assert.Equal(t, int64(0), s.Tell(h), "size 1 consumes nothing")
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// scanf_one
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func TestSurface_ScanOne(t *testing.T) {
	raw := binary.NativeEndian.AppendUint32(nil, uint32(0xFFFFFFF9)) // -7
	raw = binary.NativeEndian.AppendUint32(raw, math.Float32bits(1.5))
	s, h := newSurface(t, string(raw))

	var i int32
	assert.Equal(t, int32(1), s.ScanOne(h, "%d", unsafe.Pointer(&i)))
	assert.Equal(t, int32(-7), i)

	var f float32
	assert.Equal(t, int32(1), s.ScanOne(h, "%f", unsafe.Pointer(&f)))
	assert.Equal(t, float32(1.5), f)

	// 读取不足：失败且目标不变
	i = 42
	assert.Equal(t, int32(-1), s.ScanOne(h, "%d", unsafe.Pointer(&i)))
	assert.Equal(t, int32(42), i)
}

func TestSurface_ScanOneUnsupported(t *testing.T) {
	s, h := newSurface(t, "abcdefgh")
	var i int32 = 9
	assert.Equal(t, int32(-1), s.ScanOne(h, "%s", unsafe.Pointer(&i)))
	assert.Equal(t, int32(-1), s.ScanOne(h, "%x", unsafe.Pointer(&i)))
	assert.Equal(t, int32(9), i)
	assert.Equal(t, int64(0), s.Tell(h), "unsupported formats consume nothing")

	assert.Equal(t, int32(-1), s.ScanOne(h, "%d", nil))
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 句柄生命周期与失败哨兵
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func TestSurface_UnknownHandleSentinels(t *testing.T) {
	s := NewSurface(handle.NewRegistry())
	buf := make([]byte, 8)
	var v int32

	for _, h := range []uintptr{0, 99} {
		assert.Equal(t, int32(0), s.Valid(h))
		assert.Equal(t, int32(-1), s.Read(h, ptr(buf), 1, 1))
		assert.Equal(t, int32(-1), s.Seek(h, 0, datastream.SeekSet))
		assert.Equal(t, int64(-1), s.Tell(h))
		assert.Equal(t, int64(-1), s.Size(h))
		assert.Equal(t, int32(0), s.EOF(h))
		assert.Equal(t, int32(-1), s.GetChar(h))
		assert.Equal(t, unsafe.Pointer(nil), s.Gets(h, ptr(buf), 8))
		assert.Equal(t, int32(-1), s.ScanOne(h, "%d", unsafe.Pointer(&v)))
		assert.NotPanics(t, func() { s.Drop(h) })
	}
}

func TestSurface_DropDetached(t *testing.T) {
	s := NewSurface(handle.NewRegistry())
	src := datastreamtest.NewCountingSource([]byte("abc"))
	h := uintptr(s.Registry().RegisterDetached(datastream.NewStream(src)))

	s.Drop(h)
	assert.Equal(t, 1, src.Closes())
	assert.Equal(t, int64(-1), s.Tell(h), "released handle fails")

	s.Drop(h)
	assert.Equal(t, 1, src.Closes(), "second drop is a no-op")
}

func TestSurface_DropIgnoresOwnedHandles(t *testing.T) {
	s := NewSurface(handle.NewRegistry())
	src := datastreamtest.NewCountingSource([]byte("abc"))
	h := uintptr(s.Registry().Register(datastream.NewStream(src)))

	s.Drop(h)
	assert.Equal(t, 0, src.Closes())
	assert.Equal(t, int64(3), s.Size(h))
}

func TestSurface_PanicBecomesSentinel(t *testing.T) {
	src := datastreamtest.NewFailingSource([]byte("abcd"))
	src.PanicOnRead = true
	s, h := newSurfaceFrom(t, src)

	before := safe.GetStats().PanicCount
	buf := make([]byte, 4)
	assert.NotPanics(t, func() {
		assert.Equal(t, int32(-1), s.Read(h, ptr(buf), 1, 4))
		assert.Equal(t, int32(-1), s.GetChar(h))
		assert.Equal(t, unsafe.Pointer(nil), s.Gets(h, ptr(buf), 4))
	})
	assert.Equal(t, before+3, safe.GetStats().PanicCount)
}

func TestSurface_Metrics(t *testing.T) {
	previous := metrics.GetGlobalMetrics()
	defer metrics.SetGlobalMetrics(previous)
	m := metrics.NewMemoryMetrics()
	metrics.SetGlobalMetrics(m)

	s, h := newSurface(t, "abcd")
	buf := make([]byte, 4)
	require.Equal(t, int32(4), s.Read(h, ptr(buf), 1, 4))
	require.Equal(t, int32(-1), s.Read(h, ptr(buf), 1, 4))

	calls, _ := m.GetCounter(metrics.MetricCallbacks, map[string]string{"op": OpRead})
	failures, _ := m.GetCounter(metrics.MetricCallbackFailures, map[string]string{"op": OpRead})
	bytes, _ := m.GetCounter(metrics.MetricBytesRead, nil)
	assert.Equal(t, 2.0, calls)
	assert.Equal(t, 1.0, failures)
	assert.Equal(t, 4.0, bytes)
}
