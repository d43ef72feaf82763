package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"e.coding.net/Love54dj/weizhong/md2txt/cache"
	"e.coding.net/Love54dj/weizhong/md2txt/config"
	"e.coding.net/Love54dj/weizhong/md2txt/jobs"
	"e.coding.net/Love54dj/weizhong/md2txt/localstorage"
	"e.coding.net/Love54dj/weizhong/md2txt/server"
	"e.coding.net/Love54dj/weizhong/md2txt/storage"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket conversion server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return runServe(a.cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func runServe(cfg *config.Config) error {
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, cleanup, err := buildServerOptions(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Local.Enabled() && cfg.Local.Retention > 0 && cfg.Local.PruneInterval > 0 {
		jobs.AddJob(localstorage.PruneJob{MaxAge: cfg.Local.Retention})
		go func() {
			if err := jobs.Serve(ctx, cfg.Local.PruneInterval); err != nil {
				slog.Error("job runner stopped", "error", err)
			}
		}()
	}

	return server.New(opts).Run(ctx)
}

// buildServerOptions 按配置初始化缓存和导出后端，未配置的部分直接跳过
func buildServerOptions(ctx context.Context, cfg *config.Config) (server.Options, func(), error) {
	opts := server.Options{
		Addr:          cfg.Server.Addr,
		MaxInputBytes: cfg.Server.MaxInputBytes,
		ReadTimeout:   cfg.Server.ReadTimeout,
		Exporters:     map[string]server.UploadFunc{},
	}
	cleanup := func() {}

	if cfg.Redis.Enabled() {
		c, err := cache.New(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			slog.Warn("redis unavailable, serving without cache", "error", err)
		} else {
			opts.Cache = c
			cleanup = func() { c.Close() }
		}
	}

	if cfg.Local.Enabled() {
		if err := localstorage.Init(cfg.Local.Dir, cfg.Local.Salt, cfg.Local.PublicPath); err != nil {
			return opts, cleanup, fmt.Errorf("failed to init local export: %w", err)
		}
		opts.Exporters["local"] = localstorage.UploadRawContent
		opts.ExportDir = cfg.Local.Dir
		opts.PublicPath = cfg.Local.PublicPath
	}

	if cfg.COS.Enabled() {
		err := storage.Init(ctx, storage.Options{
			SecretID:     cfg.COS.SecretID,
			SecretKey:    cfg.COS.SecretKey,
			Bucket:       cfg.COS.Bucket,
			Region:       cfg.COS.Region,
			FrontendHost: cfg.COS.FrontendHost,
			HTTPS:        cfg.COS.HTTPS,
			Salt:         cfg.COS.Salt,
		})
		if err != nil {
			return opts, cleanup, fmt.Errorf("failed to init cos export: %w", err)
		}
		opts.Exporters["cos"] = storage.UploadRawContent
	}

	slog.Info("server options ready",
		"cache", opts.Cache != nil,
		"exporters", len(opts.Exporters),
		"max_input_bytes", opts.MaxInputBytes)
	return opts, cleanup, nil
}
