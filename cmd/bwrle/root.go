package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zsiec/bwrle/internal/codec"
	"github.com/zsiec/bwrle/internal/config"
	"github.com/zsiec/bwrle/internal/logger"
	"github.com/zsiec/bwrle/internal/pipeline"
)

// flagBindings maps configuration keys to the flags that override them.
// Each command defines only the flags it needs.
var flagBindings = map[string]string{
	"logging.level":      "log-level",
	"logging.format":     "log-format",
	"codec.width":        "width",
	"codec.height":       "height",
	"codec.frame_rate":   "fps",
	"codec.threshold":    "threshold",
	"codec.header":       "header",
	"codec.compress":     "compress",
	"ffmpeg.binary_path": "ffmpeg",
	"ffmpeg.probe_path":  "ffprobe",
	"server.http_port":   "port",
	"server.http3_port":  "http3-port",
	"redis.enabled":      "redis",
	"metrics.enabled":    "metrics",
}

type app struct {
	configPath string
	cfg        *config.Config
	log        *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "bwrle",
		Short: "Black-and-white run-length video codec",
		Long: `bwrle encodes video into a lossy 1-bit run-length stream, decodes it
back to video or images, and reports per-frame compression statistics.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newEncodeCmd(a),
		newDecodeCmd(a),
		newAnalyzeCmd(a),
		newPlayCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, config.WithFlags(cmd.Flags(), flagBindings))
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.log = log
	log.WithField("config_path", a.configPath).Debug("Configuration loaded")
	return nil
}

// component returns a pipeline logger tagged with the command name.
func (a *app) component(name string) logger.Logger {
	return logger.NewLogrusAdapter(logger.WithComponent(a.log, name))
}

// streamFormat is the layout expected of existing streams.
func (a *app) streamFormat() codec.Format {
	return codec.Format{
		Width:     a.cfg.Codec.Width,
		Height:    a.cfg.Codec.Height,
		FrameRate: uint8(a.cfg.Codec.FrameRate),
		Header:    a.cfg.Codec.Header,
	}
}

// codecFlags registers the stream layout flags shared by the commands.
func codecFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("header", false, "Stream carries the 8-byte header")
	cmd.Flags().Int("width", codec.DefaultWidth, "Frame width of header-less streams")
	cmd.Flags().Int("height", codec.DefaultHeight, "Frame height of header-less streams")
	cmd.Flags().Int("fps", codec.DefaultFrameRate, "Frame rate of header-less streams")
}

// windowFlags registers --start and --count.
func windowFlags(cmd *cobra.Command, w *pipeline.Window) {
	cmd.Flags().IntVarP(&w.Start, "start", "s", 0, "Skip this many frames first")
	cmd.Flags().IntVarP(&w.Count, "count", "n", 0, "Process at most this many frames (0 for all)")
}

func validateWindow(w pipeline.Window) error {
	if w.Start < 0 || w.Count < 0 {
		return fmt.Errorf("--start and --count must not be negative")
	}
	return nil
}
