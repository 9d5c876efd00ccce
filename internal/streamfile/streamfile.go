// Package streamfile stores encoded streams on disk, optionally inside a
// zstd frame. The codec bytes are identical either way; compression only
// wraps the file.
package streamfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrTooLarge is returned by UnwrapLimit when a zstd stream would expand
// past the limit.
var ErrTooLarge = errors.New("streamfile: decompressed stream exceeds limit")

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

var decoderPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
		)
		if err != nil {
			panic(err)
		}
		return dec
	},
}

// IsCompressed reports whether data starts with a zstd frame header.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Unwrap returns the stream carried by data. Data that looks like zstd but
// does not decompress is returned unchanged, since a raw stream may start
// with the same four bytes.
func Unwrap(data []byte) ([]byte, bool) {
	if !IsCompressed(data) {
		return data, false
	}

	dec := decoderPool.Get().(*zstd.Decoder)
	out, err := dec.DecodeAll(data, nil)
	decoderPool.Put(dec)
	if err != nil {
		return data, false
	}
	return out, true
}

// UnwrapLimit is Unwrap with a cap on the decompressed size. A zstd frame
// that declares or produces more than limit bytes, or needs a larger window,
// fails with ErrTooLarge before the output is materialized.
func UnwrapLimit(data []byte, limit int64) ([]byte, bool, error) {
	if !IsCompressed(data) {
		return data, false, nil
	}
	if limit <= 0 {
		return nil, false, ErrTooLarge
	}

	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
		zstd.WithDecoderMaxMemory(uint64(limit)),
	)
	if err != nil {
		return nil, false, fmt.Errorf("streamfile: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	switch {
	case err == nil:
		return out, true, nil
	case errors.Is(err, zstd.ErrDecoderSizeExceeded), errors.Is(err, zstd.ErrWindowSizeExceeded):
		return nil, false, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, limit)
	default:
		return data, false, nil
	}
}

// Compress wraps stream in a single zstd frame.
func Compress(stream []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
	)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(stream, make([]byte, 0, len(stream)/4)), nil
}

// Read loads the stream stored at path, decompressing it if needed.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("streamfile: %w", err)
	}
	out, _ := Unwrap(data)
	return out, nil
}

// Write stores stream at path, zstd-compressed when compress is set.
func Write(path string, stream []byte, compress bool) error {
	w, err := Create(path, compress)
	if err != nil {
		return err
	}
	if _, err := w.Write(stream); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Create opens path for streaming output. Bytes written to the returned
// writer are stored verbatim or through a zstd encoder.
func Create(path string, compress bool) (io.WriteCloser, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("streamfile: %w", err)
	}

	fw := &fileWriter{file: file, buf: bufio.NewWriterSize(file, 1<<16)}
	if !compress {
		return fw, nil
	}

	enc, err := zstd.NewWriter(fw.buf, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("streamfile: %w", err)
	}
	fw.enc = enc
	return fw, nil
}

type fileWriter struct {
	file *os.File
	buf  *bufio.Writer
	enc  *zstd.Encoder
}

func (w *fileWriter) Write(p []byte) (int, error) {
	if w.enc != nil {
		return w.enc.Write(p)
	}
	return w.buf.Write(p)
}

func (w *fileWriter) Close() error {
	var firstErr error
	if w.enc != nil {
		firstErr = w.enc.Close()
	}
	if err := w.buf.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return fmt.Errorf("streamfile: %w", firstErr)
	}
	return nil
}
