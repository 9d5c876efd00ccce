package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zsiec/bwrle/internal/pipeline"
	"github.com/zsiec/bwrle/internal/streamfile"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var input, output string
	var trace bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Write per-frame compression statistics as CSV",
		Long: `Analyze walks a stream without decoding pixels and writes one CSV record
per frame with the columns frame,ratio,%0xff,%0x00,min,max,avg. min and max
are empty for frames made only of 0 and 255 runs.`,
		Example: `  bwrle analyze -i clip.bw --header > stats.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd.Context(), cmd.OutOrStdout(), input, output, trace)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input stream file")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output CSV file, - for stdout")
	cmd.Flags().BoolVarP(&trace, "trace", "t", false, "Log every frame")
	codecFlags(cmd)
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func (a *app) runAnalyze(ctx context.Context, stdout io.Writer, input, output string, trace bool) (err error) {
	data, err := streamfile.Read(input)
	if err != nil {
		return err
	}

	w := stdout
	if output != "-" && output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		defer func() {
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
		}()
		w = f
	}

	summary, err := pipeline.AnalyzeCSV(ctx, data, a.streamFormat(), w,
		pipeline.WithLogger(a.component("analyze")), pipeline.WithTrace(trace))
	if err != nil {
		return fmt.Errorf("analyze %s: %w", input, err)
	}

	a.log.WithFields(logrus.Fields{
		"frames":         summary.Frames,
		"bytes":          summary.TotalBytes,
		"overall_ratio":  summary.OverallRatio,
		"min_ratio":      summary.MinRatio,
		"max_ratio":      summary.MaxRatio,
		"trailing_bytes": summary.Trailing,
	}).Debug("Analysis summary")
	return nil
}
