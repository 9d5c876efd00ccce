package main

import (
	"github.com/spf13/cobra"

	"github.com/zsiec/bwrle/internal/preview"
	"github.com/zsiec/bwrle/internal/streamfile"
)

func newPlayCmd(a *app) *cobra.Command {
	var (
		input string
		opts  preview.Options
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a stream in the terminal",
		Long: `Play decodes a stream and shows it in the terminal at the stream frame
rate. Keys: space pauses, right arrow steps while paused, r restarts, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := streamfile.Read(input)
			if err != nil {
				return err
			}

			m, err := preview.New(data, a.streamFormat(), opts)
			if err != nil {
				return err
			}
			return preview.Run(cmd.Context(), m)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input stream file")
	cmd.Flags().IntVarP(&opts.Start, "start", "s", 0, "Skip this many frames first")
	cmd.Flags().BoolVarP(&opts.Overlay, "preview", "p", true, "Show the frame counter")
	cmd.Flags().BoolVar(&opts.Loop, "loop", false, "Restart when the stream ends")
	codecFlags(cmd)
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
