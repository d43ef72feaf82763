package main

import (
	"github.com/spf13/cobra"

	"e.coding.net/Love54dj/weizhong/md2txt/config"
	"e.coding.net/Love54dj/weizhong/md2txt/logger"
)

type rootFlags struct {
	config   string
	logLevel string
}

// app carries the loaded config from the root command to subcommands.
type app struct {
	flags rootFlags
	cfg   *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "md2txt",
		Short: "Convert Markdown to numbered plain text",
		Long: `md2txt turns Markdown into plain text that keeps list order readable.

Examples:
  md2txt convert notes.md
  cat notes.md | md2txt convert --copy
  md2txt serve --addr :8080`,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.flags.config)
			if err != nil {
				return err
			}
			if a.flags.logLevel != "" {
				cfg.Log.Level = a.flags.logLevel
			}
			logger.Init(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.flags.config, "config", "", "config file (default ./md2txt.yaml or ~/.config/md2txt/md2txt.yaml)")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newConvertCmd(), newServeCmd(a))
	return root
}
