package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"e.coding.net/Love54dj/weizhong/md2txt/logger"
	"e.coding.net/Love54dj/weizhong/md2txt/md2txt"
)

const (
	defaultMaxInputBytes = 1 << 20
	shutdownTimeout      = 5 * time.Second
)

var ErrInputTooLarge = errors.New("input too large")

// Cache is satisfied by *cache.Cache.
type Cache interface {
	Get(ctx context.Context, input string) (string, bool, error)
	Set(ctx context.Context, input string, output string) error
}

// UploadFunc stores converted text and returns a URL for it. It matches
// localstorage.UploadRawContent and storage.UploadRawContent.
type UploadFunc func(ctx context.Context, content string, targetFileName string, userIdentifier string) (string, error)

type Options struct {
	Addr          string
	MaxInputBytes int64
	ReadTimeout   time.Duration
	Cache         Cache                 // nil 表示不使用缓存
	Exporters     map[string]UploadFunc // key 为 backend 名称，如 local、cos
	ExportDir     string                // 非空时在 PublicPath 下提供本地导出文件
	PublicPath    string
}

type Server struct {
	opts     Options
	engine   *gin.Engine
	upgrader websocket.Upgrader
}

func New(opts Options) *Server {
	if opts.MaxInputBytes <= 0 {
		opts.MaxInputBytes = defaultMaxInputBytes
	}
	s := &Server{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := r.Group("/api")
	api.POST("/convert", s.handleConvert)
	api.POST("/export", s.handleExport)
	r.GET("/ws/convert", s.handleLive)
	if opts.ExportDir != "" && strings.HasPrefix(opts.PublicPath, "/") {
		r.Static(opts.PublicPath, opts.ExportDir)
	}
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("md2txt server listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("shutting down md2txt server")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// convert runs the converter behind the optional cache. Cache failures
// are logged and never affect the result.
func (s *Server) convert(ctx context.Context, text string) (output string, cached bool) {
	if s.opts.Cache == nil || md2txt.IsBlank(text) {
		return md2txt.Convert(text), false
	}
	out, ok, err := s.opts.Cache.Get(ctx, text)
	if err != nil {
		logger.WarnWithLine("cache get failed", "error", err)
	} else if ok {
		return out, true
	}
	output = md2txt.Convert(text)
	if err := s.opts.Cache.Set(ctx, text, output); err != nil {
		logger.WarnWithLine("cache set failed", "error", err)
	}
	return output, false
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"clientIP", c.ClientIP(),
		)
	}
}
