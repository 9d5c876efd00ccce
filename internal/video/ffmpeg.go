package video

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/zsiec/bwrle/internal/codec"
	"github.com/zsiec/bwrle/internal/logger"
)

// FFmpegOptions locates the ffmpeg tools and tunes how they are invoked.
type FFmpegOptions struct {
	BinaryPath string // ffmpeg, looked up in PATH when empty
	ProbePath  string // ffprobe, looked up in PATH when empty
	VideoCodec string // output codec for FFmpegSink, "mpeg4" when empty

	// Width and Height rescale source frames when both are positive.
	Width  int
	Height int

	Logger logger.Logger
}

func (o FFmpegOptions) withDefaults() FFmpegOptions {
	if o.BinaryPath == "" {
		o.BinaryPath = "ffmpeg"
	}
	if o.ProbePath == "" {
		o.ProbePath = "ffprobe"
	}
	if o.VideoCodec == "" {
		o.VideoCodec = "mpeg4"
	}
	if o.Logger == nil {
		o.Logger = logger.NewNullLogger()
	}
	return o
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
	} `json:"streams"`
}

// Probe reads the geometry and frame rate of the first video stream of input.
func Probe(ctx context.Context, probePath, input string) (StreamInfo, error) {
	if probePath == "" {
		probePath = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, probePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate,nb_frames",
		"-of", "json",
		input)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return StreamInfo{}, fmt.Errorf("video: ffprobe %s: %w: %s", input, err, strings.TrimSpace(stderr.String()))
	}

	return parseProbe(output)
}

func parseProbe(output []byte) (StreamInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return StreamInfo{}, fmt.Errorf("video: parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return StreamInfo{}, fmt.Errorf("video: no video stream")
	}

	s := out.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return StreamInfo{}, fmt.Errorf("video: invalid stream size %dx%d", s.Width, s.Height)
	}

	rate := parseRate(s.AvgFrameRate)
	if rate == 0 {
		rate = parseRate(s.RFrameRate)
	}

	frames, _ := strconv.Atoi(s.NbFrames)

	return StreamInfo{
		Width:     s.Width,
		Height:    s.Height,
		FrameRate: rate,
		Frames:    frames,
	}, nil
}

// parseRate converts ffprobe rationals such as "30000/1001" to a float.
// Unparseable or zero-denominator values yield 0.
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// tailBuffer keeps the last few KB written to it, for error messages.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

const tailSize = 4096

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > tailSize {
		t.buf = t.buf[len(t.buf)-tailSize:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}

// FFmpegSource decodes any media file ffmpeg understands into RGB24 frames
// read from an ffmpeg rawvideo pipe.
type FFmpegSource struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdout io.ReadCloser
	r      *bufio.Reader
	stderr *tailBuffer
	info   StreamInfo
	frame  *codec.Frame
	log    logger.Logger

	closeOnce sync.Once
	closeErr  error
	// stopped is set once Close has asked ffmpeg to terminate.
	stopped bool
}

// OpenFFmpegSource probes input and starts ffmpeg. The process lives until
// Close, even if ctx is cancelled earlier.
func OpenFFmpegSource(ctx context.Context, input string, opts FFmpegOptions) (*FFmpegSource, error) {
	opts = opts.withDefaults()

	info, err := Probe(ctx, opts.ProbePath, input)
	if err != nil {
		return nil, err
	}

	args := []string{"-v", "error", "-nostdin", "-i", input}
	if opts.Width > 0 && opts.Height > 0 && (opts.Width != info.Width || opts.Height != info.Height) {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", opts.Width, opts.Height))
		info.Width, info.Height = opts.Width, opts.Height
	}
	args = append(args, "-an", "-f", "rawvideo", "-pix_fmt", "rgb24", "pipe:1")

	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, opts.BinaryPath, args...)
	stderr := &tailBuffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("video: ffmpeg stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("video: start ffmpeg: %w", err)
	}

	opts.Logger.WithFields(map[string]interface{}{
		"input":      input,
		"width":      info.Width,
		"height":     info.Height,
		"frame_rate": info.FrameRate,
	}).Debug("ffmpeg source started")

	return &FFmpegSource{
		cmd:    cmd,
		cancel: cancel,
		stdout: stdout,
		r:      bufio.NewReaderSize(stdout, 1<<16),
		stderr: stderr,
		info:   info,
		frame:  codec.NewFrame(info.Width, info.Height),
		log:    opts.Logger,
	}, nil
}

func (s *FFmpegSource) Info() StreamInfo {
	return s.info
}

// Next reads one frame. A partial frame at the end of the pipe is dropped.
func (s *FFmpegSource) Next(ctx context.Context) (*codec.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, err := io.ReadFull(s.r, s.frame.Pix)
	switch {
	case err == nil:
		return s.frame, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if werr := s.wait(); werr != nil {
			return nil, werr
		}
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("video: read frame: %w", err)
	}
}

func (s *FFmpegSource) wait() error {
	s.closeOnce.Do(func() {
		err := s.cmd.Wait()
		s.cancel()
		switch {
		case err == nil:
		case s.stopped && signaled(s.cmd.ProcessState):
			s.log.WithError(err).Debug("ffmpeg source stopped before end of input")
		default:
			s.closeErr = fmt.Errorf("video: ffmpeg exited: %w: %s", err, s.stderr.String())
		}
	})
	return s.closeErr
}

// Close stops ffmpeg if it is still running. Only the kill issued here is
// ignored; an ffmpeg that failed on its own is reported.
func (s *FFmpegSource) Close() error {
	s.stopped = true
	s.cancel()
	_ = s.stdout.Close()
	return s.wait()
}

// signaled reports whether the process was terminated by a signal rather
// than exiting with a status.
func signaled(ps *os.ProcessState) bool {
	if ps == nil {
		return false
	}
	ws, ok := ps.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled()
}

// FFmpegSink encodes frames into a video file by piping rawvideo into
// ffmpeg. The process starts on the first frame, which fixes the size.
type FFmpegSink struct {
	output    string
	frameRate float64
	opts      FFmpegOptions

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer
	width  int
	height int
	frames int
}

// NewFFmpegSink prepares a sink writing output at frameRate.
func NewFFmpegSink(output string, frameRate float64, opts FFmpegOptions) *FFmpegSink {
	if frameRate <= 0 {
		frameRate = codec.DefaultFrameRate
	}
	return &FFmpegSink{
		output:    output,
		frameRate: frameRate,
		opts:      opts.withDefaults(),
	}
}

func (s *FFmpegSink) start(width, height int) error {
	args := []string{
		"-v", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.FormatFloat(s.frameRate, 'f', -1, 64),
		"-i", "pipe:0",
		"-c:v", s.opts.VideoCodec,
		"-pix_fmt", "yuv420p",
		s.output,
	}

	cmd := exec.Command(s.opts.BinaryPath, args...)
	s.stderr = &tailBuffer{}
	cmd.Stderr = s.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("video: ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("video: start ffmpeg: %w", err)
	}

	s.cmd, s.stdin = cmd, stdin
	s.width, s.height = width, height

	s.opts.Logger.WithFields(map[string]interface{}{
		"output":     s.output,
		"codec":      s.opts.VideoCodec,
		"width":      width,
		"height":     height,
		"frame_rate": s.frameRate,
	}).Debug("ffmpeg sink started")
	return nil
}

func (s *FFmpegSink) WriteFrame(f *codec.Frame) error {
	if s.cmd == nil {
		if err := s.start(f.Width, f.Height); err != nil {
			return err
		}
	} else if err := checkSize(f, s.width, s.height); err != nil {
		return err
	}

	if _, err := s.stdin.Write(f.Pix); err != nil {
		return fmt.Errorf("video: write frame: %w: %s", err, s.stderr.String())
	}
	s.frames++
	return nil
}

// Close flushes ffmpeg and waits for it to finish the file. A sink that
// never received a frame produces no file.
func (s *FFmpegSink) Close() error {
	if s.cmd == nil {
		return nil
	}
	_ = s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("video: ffmpeg exited: %w: %s", err, s.stderr.String())
	}
	return nil
}
