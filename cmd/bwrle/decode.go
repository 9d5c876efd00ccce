package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zsiec/bwrle/internal/codec"
	"github.com/zsiec/bwrle/internal/pipeline"
	"github.com/zsiec/bwrle/internal/streamfile"
	"github.com/zsiec/bwrle/internal/video"
)

func newDecodeCmd(a *app) *cobra.Command {
	var (
		input, output string
		trace         bool
		window        pipeline.Window
	)

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a stream into a video or PNG frames",
		Long: `Decode reconstructs the black-and-white frames of a stream. Output ending
in a slash, naming an existing directory, or holding a %d pattern is written as
PNG frames; anything else is encoded by ffmpeg at the stream frame rate.
Decoding stops silently at the first incomplete frame.`,
		Example: `  bwrle decode -i clip.bw -o clip.mp4 --header
  bwrle decode -i clip.bw -o frames/ -s 100 -n 24`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateWindow(window); err != nil {
				return err
			}
			return a.runDecode(cmd.Context(), input, output, trace, window)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input stream file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output video file or PNG directory")
	cmd.Flags().BoolVarP(&trace, "trace", "t", false, "Log every frame")
	cmd.Flags().String("ffmpeg", "", "Path to ffmpeg")
	codecFlags(cmd)
	windowFlags(cmd, &window)
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (a *app) runDecode(ctx context.Context, input, output string, trace bool, window pipeline.Window) error {
	data, err := streamfile.Read(input)
	if err != nil {
		return err
	}

	format := a.streamFormat()
	rate := float64(format.FrameRate)
	if format.Header {
		h, err := codec.ParseHeader(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", input, err)
		}
		rate = float64(h.FrameRate)
	}

	sink, err := a.openSink(output, rate)
	if err != nil {
		return err
	}

	res, err := pipeline.Decode(ctx, data, sink, format, window,
		pipeline.WithLogger(a.component("decode")), pipeline.WithTrace(trace))
	if closeErr := sink.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", input, err)
	}

	a.log.WithFields(logrus.Fields{
		"output":         output,
		"frames":         res.Frames,
		"skipped":        res.Skipped,
		"size":           fmt.Sprintf("%dx%d", res.Format.Width, res.Format.Height),
		"frame_rate":     res.Format.FrameRate,
		"trailing_bytes": res.Trailing,
		"duration":       res.Duration,
	}).Info("Decoded stream")
	return nil
}

func (a *app) openSink(output string, rate float64) (video.Sink, error) {
	if dir, pattern, ok := pngTarget(output); ok {
		sink, err := video.NewPNGSink(dir, pattern)
		if err != nil {
			return nil, err
		}
		return sink, nil
	}

	return video.NewFFmpegSink(output, rate, video.FFmpegOptions{
		BinaryPath: a.cfg.FFmpeg.BinaryPath,
		VideoCodec: a.cfg.FFmpeg.VideoCodec,
		Logger:     a.component("ffmpeg"),
	}), nil
}

// pngTarget reports whether output names PNG frames and splits it into a
// directory and a file pattern (empty for the default).
func pngTarget(output string) (dir, pattern string, ok bool) {
	if strings.HasSuffix(output, "/") || strings.HasSuffix(output, string(os.PathSeparator)) {
		return output, "", true
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return output, "", true
	}
	if strings.EqualFold(filepath.Ext(output), ".png") && strings.Contains(filepath.Base(output), "%") {
		return filepath.Dir(output), filepath.Base(output), true
	}
	return "", "", false
}
