package cli

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "rawbridge-core/internal/core/errors"
	"rawbridge-core/internal/datastream/handle"
	"rawbridge-core/internal/engine"
	"rawbridge-core/internal/engine/enginetest"
)

func init() {
	enginetest.Register()
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 测试辅助
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("RAWBRIDGE_LOG_OUTPUT", "none")
	var stdout, stderr bytes.Buffer
	err := Run(append([]string{"--no-color", "--config", filepath.Join(t.TempDir(), "none.yaml")}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func writeSample(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func fakeFile(t *testing.T, dir, name string) string {
	return writeSample(t, dir, name, enginetest.Encode(4, 2, 1, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 命令
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func TestUnpack_Batch(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	files := []string{fakeFile(t, in, "a.fake"), fakeFile(t, in, "b.fake"), fakeFile(t, in, "c.fake")}

	stdout, err := run(t, append([]string{"--engine", enginetest.BackendName, "unpack", "-w", "2", "-o", out}, files...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "4x2")

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
	assert.Equal(t, 0, handle.Default().Len(), "every session released its handle")
}

func TestUnpack_PartialFailure(t *testing.T) {
	in := t.TempDir()
	good := fakeFile(t, in, "good.fake")
	bad := writeSample(t, in, "bad.fake", []byte("not a raw file at all\n"))

	stdout, err := run(t, "--engine", enginetest.BackendName, "unpack", good, bad)
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeUnsupportedFormat))
	assert.Equal(t, ExitUnsupported, ExitCode(err))
	assert.Contains(t, stdout, "OK")
	assert.Contains(t, stdout, "FileUnsupported")
	assert.Contains(t, stdout, "1 of 2 files failed")
	assert.Equal(t, 0, handle.Default().Len())
}

func TestUnpack_SameBaseNameInDifferentDirs(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(in, "a"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(in, "b"), 0o755))
	first := fakeFile(t, filepath.Join(in, "a"), "x.fake")
	second := fakeFile(t, filepath.Join(in, "b"), "x.fake")

	_, err := run(t, "--engine", enginetest.BackendName, "unpack", "-w", "2", "-o", out, first, second)
	require.NoError(t, err)

	for _, name := range []string{"x.png", "x-1.png"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
}

func TestOutputStems(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  []string
	}{
		{"distinct", []string{"a/x.raw", "b/y.raw"}, []string{"x", "y"}},
		{"same base", []string{"a/x.raw", "b/x.raw", "c/x.nef"}, []string{"x", "x-1", "x-2"}},
		{"suffix already taken", []string{"x-1.raw", "a/x.raw", "b/x.raw"}, []string{"x-1", "x", "x-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outputStems(tt.files))
		})
	}
}

func TestThumb(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	withThumb := writeSample(t, in, "with.fake",
		enginetest.EncodeWithThumbnail(1, 1, 1, []byte{1}, enginetest.ThumbJPEG, 1, 1, jpeg))
	without := fakeFile(t, in, "without.fake")

	stdout, err := run(t, "--engine", enginetest.BackendName, "thumb", "-o", out, withThumb, without)
	require.Error(t, err)
	assert.Equal(t, engine.StatusNoThumbnail, engine.StatusOf(err))
	assert.Contains(t, stdout, "1 of 2 files failed")

	data, err := os.ReadFile(filepath.Join(out, "with.jpg"))
	require.NoError(t, err)
	assert.Equal(t, jpeg, data)
	assert.Equal(t, 0, handle.Default().Len())
}

func TestInfo_YAML(t *testing.T) {
	file := fakeFile(t, t.TempDir(), "x.fake")
	stdout, err := run(t, "--engine", enginetest.BackendName, "info", "--yaml", file)
	require.NoError(t, err)
	assert.Contains(t, stdout, "model: FAKERAW v1")
	assert.Contains(t, stdout, "raw_width: 4")
}

func TestInfo_Text(t *testing.T) {
	file := fakeFile(t, t.TempDir(), "x.fake")
	stdout, err := run(t, "--engine", enginetest.BackendName, "info", file)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Fake FAKERAW v1")
	assert.Contains(t, stdout, "0x00000000")
}

func TestInfo_MissingFile(t *testing.T) {
	_, err := run(t, "--engine", enginetest.BackendName, "info", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, ExitIOError, ExitCode(err))
}

func TestUnknownEngine(t *testing.T) {
	file := fakeFile(t, t.TempDir(), "x.fake")
	_, err := run(t, "--engine", "nope", "info", file)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeEngineInit))
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("RAWBRIDGE_STREAM_BUFFER_SIZE", "4096")
	stdout, err := run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "buffer_size: 4096")
	assert.Contains(t, stdout, "max_line: 65535")
}

func TestConfigCommand_InvalidConfig(t *testing.T) {
	t.Setenv("RAWBRIDGE_ENGINE_OUTPUT_BPS", "12")
	_, err := run(t, "config")
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestVersionCommand(t *testing.T) {
	stdout, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "rawbridge v")
	assert.Contains(t, stdout, "fake-1.0")
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 辅助函数
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{engine.StatusFileUnsupported.Err(), ExitUnsupported},
		{engine.StatusDataError.Err(), ExitDataError},
		{engine.StatusIOError.Err(), ExitIOError},
		{coreerrors.New(coreerrors.CodeConfigError, "bad"), ExitUsage},
		{engine.StatusOutOfOrderCall.Err(), ExitFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}

func TestToImage(t *testing.T) {
	gray, err := toImage(&engine.Image{Width: 2, Height: 1, Colors: 1, Bits: 8, Data: []byte{10, 20}})
	require.NoError(t, err)
	assert.Equal(t, color.Gray{Y: 20}, gray.At(1, 0))

	deep, err := toImage(&engine.Image{Width: 1, Height: 1, Colors: 1, Bits: 16,
		Data: binary.NativeEndian.AppendUint16(nil, 0x1234)})
	require.NoError(t, err)
	assert.Equal(t, color.Gray16{Y: 0x1234}, deep.At(0, 0))

	rgb, err := toImage(&engine.Image{Width: 1, Height: 1, Colors: 3, Bits: 8, Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	r, g, b, a := rgb.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0x0101, 0x0202, 0x0303, 0xffff}, []uint32{r, g, b, a})

	_, err = toImage(&engine.Image{Width: 1, Height: 1, Colors: 4, Bits: 8, Data: []byte{1, 2, 3, 4}})
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeNotImplemented))

	_, err = toImage(&engine.Image{Width: 2, Height: 2, Colors: 1, Bits: 8, Data: []byte{1}})
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeDataError))
}

func TestReportUnpack_RecoveredPanics(t *testing.T) {
	var buf bytes.Buffer
	a := &App{out: NewOutput(&buf, true)}
	results := []unpackResult{{file: "a.fake", image: &engine.Image{Width: 1, Height: 1, Bits: 8}}}

	require.NoError(t, a.reportUnpack(results, 0))
	assert.NotContains(t, buf.String(), "panics recovered")

	buf.Reset()
	require.NoError(t, a.reportUnpack(results, 2))
	assert.Contains(t, buf.String(), "2 panics recovered in stream callbacks")
}
