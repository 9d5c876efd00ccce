package streamfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two frames of an all-black 320x240 raw stream.
func blackStream() []byte {
	row := []byte{255, 0, 65}
	return bytes.Repeat(row, 2*240)
}

func TestWriteReadPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.bwrle")
	stream := blackStream()

	require.NoError(t, Write(path, stream, false))

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, stream, onDisk)

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, stream, got)
}

func TestWriteReadCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.bwrle.zst")
	stream := blackStream()

	require.NoError(t, Write(path, stream, true))

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, IsCompressed(onDisk))
	assert.Less(t, len(onDisk), len(stream))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, stream, got)
}

func TestCompressUnwrap(t *testing.T) {
	stream := blackStream()
	packed, err := Compress(stream)
	require.NoError(t, err)

	out, compressed := Unwrap(packed)
	assert.True(t, compressed)
	assert.Equal(t, stream, out)

	out, compressed = Unwrap(stream)
	assert.False(t, compressed)
	assert.Equal(t, stream, out)
}

func TestUnwrapRawStreamWithMagicPrefix(t *testing.T) {
	// A legal raw stream for a 521-pixel-wide row begins with the zstd magic.
	raw := []byte{0x28, 0xB5, 0x2F, 0xFD}
	out, compressed := Unwrap(raw)
	assert.False(t, compressed)
	assert.Equal(t, raw, out)
}

func TestUnwrapLimit(t *testing.T) {
	// 4 MiB of zeros packs into a few kilobytes.
	stream := make([]byte, 4<<20)
	packed, err := Compress(stream)
	require.NoError(t, err)
	require.Less(t, len(packed), 64<<10)

	t.Run("within limit", func(t *testing.T) {
		out, compressed, err := UnwrapLimit(packed, 16<<20)
		require.NoError(t, err)
		assert.True(t, compressed)
		assert.Len(t, out, len(stream))
	})

	t.Run("expands past limit", func(t *testing.T) {
		out, compressed, err := UnwrapLimit(packed, 1<<20)
		assert.ErrorIs(t, err, ErrTooLarge)
		assert.False(t, compressed)
		assert.Nil(t, out)
	})

	t.Run("raw stream ignores limit", func(t *testing.T) {
		raw := blackStream()
		out, compressed, err := UnwrapLimit(raw, 1)
		require.NoError(t, err)
		assert.False(t, compressed)
		assert.Equal(t, raw, out)
	})

	t.Run("undecodable magic prefix", func(t *testing.T) {
		raw := []byte{0x28, 0xB5, 0x2F, 0xFD}
		out, compressed, err := UnwrapLimit(raw, 1<<20)
		require.NoError(t, err)
		assert.False(t, compressed)
		assert.Equal(t, raw, out)
	})
}

func TestCreateStreaming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamed.zst")
	w, err := Create(path, true)
	require.NoError(t, err)

	stream := blackStream()
	for i := 0; i < len(stream); i += 100 {
		end := min(i+100, len(stream))
		_, err := w.Write(stream[i:end])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, stream, got)
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestCreateInMissingDirectory(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "no", "such", "dir", "x"), false)
	assert.Error(t, err)
}
