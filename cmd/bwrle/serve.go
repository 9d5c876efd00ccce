package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zsiec/bwrle/internal/catalog"
	"github.com/zsiec/bwrle/internal/server"
	"github.com/zsiec/bwrle/pkg/version"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context())
		},
	}

	cmd.Flags().Int("port", 8080, "HTTP port")
	cmd.Flags().Int("http3-port", 0, "HTTP/3 port, requires TLS files (0 disables)")
	cmd.Flags().Bool("redis", false, "Store reports in Redis")
	cmd.Flags().Bool("metrics", false, "Serve Prometheus metrics")
	cmd.Flags().String("ffprobe", "", "Path to ffprobe")
	cmd.Flags().String("ffmpeg", "", "Path to ffmpeg")
	codecFlags(cmd)

	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	a.log.WithField("version", version.GetInfo().Short()).Info("Starting bwrle server")

	cat, err := a.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := cat.Close(); err != nil {
			a.log.WithError(err).Error("Failed to close report catalog")
		}
	}()

	srv := server.New(a.cfg, a.log, cat)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (a *app) openCatalog(ctx context.Context) (catalog.Catalog, error) {
	if !a.cfg.Redis.Enabled {
		a.log.Info("Using in-memory report catalog")
		return catalog.NewMemoryCatalog(a.cfg.Catalog.TTL), nil
	}

	client := catalog.NewRedisClient(&a.cfg.Redis)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.log.WithField("addresses", a.cfg.Redis.Addresses).Info("Connected to Redis")

	return catalog.NewRedisCatalog(client, a.log, a.cfg.Catalog), nil
}
