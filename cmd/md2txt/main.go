package main

import (
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	// maxprocs.Set 只在 GOMAXPROCS 环境变量非法时失败，此时沿用 Go 默认值
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		slog.Debug(fmt.Sprintf(format, args...))
	}))

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
