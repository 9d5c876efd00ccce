package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zsiec/bwrle/internal/pipeline"
	"github.com/zsiec/bwrle/internal/streamfile"
	"github.com/zsiec/bwrle/internal/video"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

func newEncodeCmd(a *app) *cobra.Command {
	var (
		input, output string
		trace         bool
		window        pipeline.Window
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a video or image sequence into a stream",
		Long: `Encode reads a video through ffmpeg, or still images matched by a glob,
binarizes every frame and writes the run-length stream.`,
		Example: `  bwrle encode -i clip.mp4 -o clip.bw --header
  bwrle encode -i 'frames/*.png' -o frames.bw --fps 12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateWindow(window); err != nil {
				return err
			}
			return a.runEncode(cmd.Context(), cmd, input, output, trace, window)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input video file or image glob")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output stream file")
	cmd.Flags().BoolVarP(&trace, "trace", "t", false, "Log every frame")
	cmd.Flags().Int("threshold", 127, "Binarization threshold (0-255)")
	cmd.Flags().Bool("compress", false, "Wrap the stream in a zstd container")
	cmd.Flags().String("ffmpeg", "", "Path to ffmpeg")
	cmd.Flags().String("ffprobe", "", "Path to ffprobe")
	codecFlags(cmd)
	windowFlags(cmd, &window)
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (a *app) runEncode(ctx context.Context, cmd *cobra.Command, input, output string, trace bool, window pipeline.Window) error {
	log := a.component("encode")
	cc := a.cfg.Codec

	src, err := a.openSource(ctx, input)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := streamfile.Create(output, cc.Compress)
	if err != nil {
		return err
	}

	opts := pipeline.EncodeOptions{
		Header:    cc.Header,
		Threshold: uint8(cc.Threshold),
		Window:    window,
	}
	// The source rate is recorded unless a rate was asked for explicitly.
	if cmd.Flags().Changed("fps") {
		opts.FrameRate = uint8(cc.FrameRate)
	}

	res, err := pipeline.Encode(ctx, src, out, opts, pipeline.WithLogger(log), pipeline.WithTrace(trace))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", input, err)
	}

	a.log.WithFields(logrus.Fields{
		"output":     output,
		"frames":     res.Frames,
		"size":       fmt.Sprintf("%dx%d", res.Width, res.Height),
		"frame_rate": res.FrameRate,
		"bytes":      res.Bytes,
		"ratio":      res.Ratio(),
		"duration":   res.Duration,
	}).Info("Encoded stream")
	return nil
}

// openSource picks an ImageSource for image paths and globs and ffmpeg for
// everything else.
func (a *app) openSource(ctx context.Context, input string) (video.Source, error) {
	cc := a.cfg.Codec

	if imageExts[strings.ToLower(filepath.Ext(input))] {
		paths, err := filepath.Glob(input)
		if err != nil {
			return nil, fmt.Errorf("invalid image pattern: %w", err)
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no images match %q", input)
		}
		sort.Strings(paths)

		src, err := video.NewImageSource(paths, float64(cc.FrameRate))
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	src, err := video.OpenFFmpegSource(ctx, input, video.FFmpegOptions{
		BinaryPath: a.cfg.FFmpeg.BinaryPath,
		ProbePath:  a.cfg.FFmpeg.ProbePath,
		Width:      cc.Width,
		Height:     cc.Height,
		Logger:     a.component("ffmpeg"),
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}
