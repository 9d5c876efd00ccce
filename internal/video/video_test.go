package video

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zsiec/bwrle/internal/codec"
)

func solidFrame(w, h int, v uint8) *codec.Frame {
	f := codec.NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.SetGray(x, y, v)
		}
	}
	return f
}

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, png.Encode(file, img))
}

func TestSliceSource(t *testing.T) {
	frames := []*codec.Frame{solidFrame(4, 2, 0), solidFrame(4, 2, 255)}
	src := NewSliceSource(frames, 12)

	assert.Equal(t, StreamInfo{Width: 4, Height: 2, FrameRate: 12, Frames: 2}, src.Info())

	ctx := context.Background()
	for _, want := range frames {
		got, err := src.Next(ctx)
		require.NoError(t, err)
		assert.Same(t, want, got)
	}

	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, src.Close())
}

func TestSliceSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSliceSource([]*codec.Frame{solidFrame(1, 1, 0)}, 24).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemorySinkCopies(t *testing.T) {
	var sink MemorySink
	f := solidFrame(2, 2, 255)
	require.NoError(t, sink.WriteFrame(f))

	f.SetGray(0, 0, 0)
	require.Len(t, sink.Frames, 1)
	r, _, _ := sink.Frames[0].RGB(0, 0)
	assert.Equal(t, uint8(255), r)
}

func TestImageSource(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.png"),
	}
	writePNG(t, paths[0], 8, 4, color.White)
	writePNG(t, paths[1], 8, 4, color.Black)

	src, err := NewImageSource(paths, 2)
	require.NoError(t, err)
	assert.Equal(t, StreamInfo{Width: 8, Height: 4, FrameRate: 2, Frames: 2}, src.Info())

	ctx := context.Background()
	first, err := src.Next(ctx)
	require.NoError(t, err)
	r, g, b := first.RGB(3, 3)
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b})

	second, err := src.Next(ctx)
	require.NoError(t, err)
	r, _, _ = second.RGB(0, 0)
	assert.Equal(t, uint8(0), r)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestImageSourceSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")}
	writePNG(t, paths[0], 8, 4, color.White)
	writePNG(t, paths[1], 4, 4, color.White)

	src, err := NewImageSource(paths, 24)
	require.NoError(t, err)

	_, err = src.Next(context.Background())
	require.NoError(t, err)
	_, err = src.Next(context.Background())
	assert.ErrorContains(t, err, "does not match")
}

func TestImageSourceErrors(t *testing.T) {
	_, err := NewImageSource(nil, 24)
	assert.Error(t, err)

	_, err = NewImageSource([]string{filepath.Join(t.TempDir(), "missing.png")}, 24)
	assert.Error(t, err)

	notImage := filepath.Join(t.TempDir(), "x.png")
	require.NoError(t, os.WriteFile(notImage, []byte("not an image"), 0o600))
	_, err = NewImageSource([]string{notImage}, 24)
	assert.Error(t, err)
}

func TestPNGSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink, err := NewPNGSink(dir, "")
	require.NoError(t, err)

	require.NoError(t, sink.WriteFrame(solidFrame(6, 3, 255)))
	require.NoError(t, sink.WriteFrame(solidFrame(6, 3, 0)))
	require.NoError(t, sink.Close())
	assert.Equal(t, 2, sink.Written())

	file, err := os.Open(filepath.Join(dir, "frame_00001.png"))
	require.NoError(t, err)
	defer file.Close()

	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 3), img.Bounds())
	r, _, _, _ := img.At(5, 2).RGBA()
	assert.Zero(t, r)
}

func TestParseRate(t *testing.T) {
	tests := map[string]float64{
		"24/1":       24,
		"30000/1001": 30000.0 / 1001.0,
		"25":         25,
		"0/0":        0,
		"":           0,
		"abc/1":      0,
	}
	for in, want := range tests {
		assert.InDelta(t, want, parseRate(in), 1e-9, in)
	}
}

func TestParseProbe(t *testing.T) {
	info, err := parseProbe([]byte(`{
		"streams": [{
			"width": 640,
			"height": 480,
			"r_frame_rate": "30/1",
			"avg_frame_rate": "0/0",
			"nb_frames": "90"
		}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, StreamInfo{Width: 640, Height: 480, FrameRate: 30, Frames: 90}, info)

	_, err = parseProbe([]byte(`{"streams": []}`))
	assert.Error(t, err)

	_, err = parseProbe([]byte(`{"streams": [{"width": 0, "height": 10}]}`))
	assert.Error(t, err)

	_, err = parseProbe([]byte(`not json`))
	assert.Error(t, err)
}

func TestTailBuffer(t *testing.T) {
	var tb tailBuffer
	big := make([]byte, tailSize+10)
	for i := range big {
		big[i] = 'a'
	}
	big[len(big)-1] = 'z'

	n, err := tb.Write(big)
	require.NoError(t, err)
	assert.Equal(t, len(big), n)
	assert.Len(t, tb.String(), tailSize)
	assert.Equal(t, byte('z'), tb.String()[tailSize-1])
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available", bin)
		}
	}
}

func TestFFmpegRoundTrip(t *testing.T) {
	requireFFmpeg(t)

	output := filepath.Join(t.TempDir(), "clip.avi")
	sink := NewFFmpegSink(output, 10, FFmpegOptions{})
	for i := 0; i < 5; i++ {
		v := uint8(0)
		if i%2 == 1 {
			v = 255
		}
		require.NoError(t, sink.WriteFrame(solidFrame(32, 16, v)))
	}
	require.NoError(t, sink.Close())

	ctx := context.Background()
	src, err := OpenFFmpegSource(ctx, output, FFmpegOptions{Width: 16, Height: 8})
	require.NoError(t, err)
	defer src.Close()

	info := src.Info()
	assert.Equal(t, 16, info.Width)
	assert.Equal(t, 8, info.Height)
	assert.InDelta(t, 10, info.FrameRate, 0.01)

	count := 0
	for {
		f, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, 16, f.Width)
		count++
	}
	assert.Equal(t, 5, count)
}

func TestFFmpegSinkWithoutFrames(t *testing.T) {
	sink := NewFFmpegSink(filepath.Join(t.TempDir(), "empty.avi"), 0, FFmpegOptions{})
	assert.NoError(t, sink.Close())
}

func TestProbeMissingFile(t *testing.T) {
	requireFFmpeg(t)
	_, err := Probe(context.Background(), "", filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Error(t, err)
}

// fakeFFmpeg installs shell stand-ins for ffprobe, reporting a 2x1 stream,
// and for ffmpeg running body.
func fakeFFmpeg(t *testing.T, body string) FFmpegOptions {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	dir := t.TempDir()
	probe := filepath.Join(dir, "ffprobe")
	bin := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(probe, []byte(`#!/bin/sh
echo '{"streams":[{"width":2,"height":1,"avg_frame_rate":"10/1"}]}'
`), 0o755))
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"+body), 0o755))
	return FFmpegOptions{BinaryPath: bin, ProbePath: probe}
}

func TestFFmpegSourceCloseBeforeEnd(t *testing.T) {
	opts := fakeFFmpeg(t, `printf '\000\000\000\377\377\377'
exec sleep 30
`)
	ctx := context.Background()
	src, err := OpenFFmpegSource(ctx, "clip.mp4", opts)
	require.NoError(t, err)

	f, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), f.Pix[3])

	assert.NoError(t, src.Close())
}

func TestFFmpegSourceReportsFailure(t *testing.T) {
	opts := fakeFFmpeg(t, `printf '\000\000\000\377\377\377\000\000\000'
echo 'corrupt packet' >&2
exit 1
`)
	ctx := context.Background()

	t.Run("at end of input", func(t *testing.T) {
		src, err := OpenFFmpegSource(ctx, "clip.mp4", opts)
		require.NoError(t, err)
		defer src.Close()

		_, err = src.Next(ctx)
		require.NoError(t, err)
		_, err = src.Next(ctx)
		assert.ErrorContains(t, err, "corrupt packet")
	})

	t.Run("on close", func(t *testing.T) {
		src, err := OpenFFmpegSource(ctx, "clip.mp4", opts)
		require.NoError(t, err)

		_, err = src.Next(ctx)
		require.NoError(t, err)

		// Let ffmpeg exit by itself before Close.
		time.Sleep(300 * time.Millisecond)
		err = src.Close()
		assert.ErrorContains(t, err, "corrupt packet")
	})
}
