package datastream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffered_FillConsume(t *testing.T) {
	b := NewBuffered(bytes.NewReader([]byte("abcdefgh")), 4)

	avail, err := b.Fill()
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(avail))

	b.Consume(3)
	avail, err = b.Fill()
	require.NoError(t, err)
	assert.Equal(t, "d", string(avail))

	b.Consume(10) // 超出部分被截断
	avail, err = b.Fill()
	require.NoError(t, err)
	assert.Equal(t, "efgh", string(avail))

	b.Consume(4)
	avail, err = b.Fill()
	require.NoError(t, err)
	assert.Empty(t, avail)
}

func TestBuffered_LogicalPosition(t *testing.T) {
	b := NewBuffered(bytes.NewReader([]byte("abcdefgh")), 8)

	_, err := b.Fill()
	require.NoError(t, err)
	b.Consume(2)

	pos, err := b.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pos)

	// 仅查询位置不丢弃缓冲区
	avail, err := b.Fill()
	require.NoError(t, err)
	assert.Equal(t, "cdefgh", string(avail))

	pos, err = b.Seek(1, io.SeekCurrent)
	require.NoError(t, err)
	assert.EqualValues(t, 3, pos)
	avail, err = b.Fill()
	require.NoError(t, err)
	assert.Equal(t, "defgh", string(avail))
}

// zeroReader 永远返回 0, nil
type zeroReader struct{ io.Seeker }

func (zeroReader) Read([]byte) (int, error) { return 0, nil }

func TestBuffered_NoProgress(t *testing.T) {
	b := NewBuffered(zeroReader{bytes.NewReader(nil)}, 4)
	_, err := b.Fill()
	assert.ErrorIs(t, err, io.ErrNoProgress)
}

func TestBuffered_FailedSeekKeepsBuffer(t *testing.T) {
	b := NewBuffered(bytes.NewReader([]byte("abcdefgh")), 8)
	_, err := b.Fill()
	require.NoError(t, err)
	b.Consume(3)

	_, err = b.Seek(-10, io.SeekStart)
	assert.Error(t, err)

	avail, err := b.Fill()
	require.NoError(t, err)
	assert.Equal(t, "defgh", string(avail))
}
