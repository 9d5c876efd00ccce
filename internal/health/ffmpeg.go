package health

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// RequiredEncoders are the ffmpeg encoders used by bwrle: rawvideo for the
// frame pipes and mpeg4 for decoded output.
var RequiredEncoders = []string{"rawvideo", "mpeg4"}

// FFmpegChecker verifies that ffmpeg and ffprobe run and that the encoders
// needed for decoding to video are built in.
type FFmpegChecker struct {
	binaryPath string
	probePath  string
	encoders   []string
	timeout    time.Duration
}

// NewFFmpegChecker resolves empty paths through PATH. extraEncoders are
// checked in addition to RequiredEncoders.
func NewFFmpegChecker(binaryPath, probePath string, extraEncoders ...string) *FFmpegChecker {
	encoders := append([]string(nil), RequiredEncoders...)
	for _, e := range extraEncoders {
		if e != "" && !contains(encoders, e) {
			encoders = append(encoders, e)
		}
	}

	return &FFmpegChecker{
		binaryPath: lookPath(binaryPath, "ffmpeg"),
		probePath:  lookPath(probePath, "ffprobe"),
		encoders:   encoders,
		timeout:    5 * time.Second,
	}
}

func lookPath(path, name string) string {
	if path != "" {
		return path
	}
	if found, err := exec.LookPath(name); err == nil {
		return found
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (f *FFmpegChecker) Name() string {
	return "ffmpeg"
}

func (f *FFmpegChecker) Check(ctx context.Context) error {
	if f.binaryPath == "" {
		return fmt.Errorf("ffmpeg binary not found in PATH")
	}
	if f.probePath == "" {
		return fmt.Errorf("ffprobe binary not found in PATH")
	}

	if _, err := f.version(ctx, f.binaryPath, "ffmpeg"); err != nil {
		return err
	}
	if _, err := f.version(ctx, f.probePath, "ffprobe"); err != nil {
		return err
	}

	available, err := f.availableEncoders(ctx)
	if err != nil {
		return err
	}

	var missing []string
	for _, e := range f.encoders {
		if !available[e] {
			missing = append(missing, e)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing ffmpeg encoders: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Version returns the first line of `ffmpeg -version`.
func (f *FFmpegChecker) Version(ctx context.Context) (string, error) {
	return f.version(ctx, f.binaryPath, "ffmpeg")
}

func (f *FFmpegChecker) version(ctx context.Context, path, name string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	output, err := exec.CommandContext(cmdCtx, path, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("%s version check failed: %w", name, err)
	}

	line, _, _ := strings.Cut(string(output), "\n")
	if !strings.HasPrefix(line, name+" version") {
		return "", fmt.Errorf("unexpected %s version output", name)
	}
	return strings.TrimSpace(line), nil
}

func (f *FFmpegChecker) availableEncoders(ctx context.Context) (map[string]bool, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	output, err := exec.CommandContext(cmdCtx, f.binaryPath, "-hide_banner", "-encoders").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list ffmpeg encoders: %w", err)
	}
	return parseEncoders(output), nil
}

// parseEncoders reads the video encoders from `ffmpeg -encoders` output,
// whose entries look like " V....D mpeg4                MPEG-4 part 2".
func parseEncoders(output []byte) map[string]bool {
	encoders := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	inList := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "------") {
			inList = true
			continue
		}
		if !inList {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) != 6 || fields[0][0] != 'V' {
			continue
		}
		encoders[fields[1]] = true
	}
	return encoders
}
