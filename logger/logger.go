package logger

import (
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

// Init 设置默认 slog handler，format 为 "json" 时输出 JSON，否则输出 text
func Init(level string, format string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// ParseLevel 解析日志级别，无法识别时返回 Info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func withLine(args []any) []any {
	_, file, line, _ := runtime.Caller(2)
	return append([]any{"file", file, "line", line}, args...)
}

// ErrorWithLine 记录错误信息并包含文件名和行号
func ErrorWithLine(msg string, args ...any) {
	slog.Error(msg, withLine(args)...)
}

// WarnWithLine 记录警告信息并包含文件名和行号
func WarnWithLine(msg string, args ...any) {
	slog.Warn(msg, withLine(args)...)
}

// DebugWithLine 记录调试信息并包含文件名和行号
func DebugWithLine(msg string, args ...any) {
	slog.Debug(msg, withLine(args)...)
}
