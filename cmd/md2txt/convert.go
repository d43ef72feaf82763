package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"e.coding.net/Love54dj/weizhong/md2txt/client"
	"e.coding.net/Love54dj/weizhong/md2txt/clipboard"
	"e.coding.net/Love54dj/weizhong/md2txt/md2txt"
)

// copyText is replaced in tests.
var copyText = clipboard.CopyText

type convertFlags struct {
	output string
	copy   bool
	stats  bool
	server string
}

func newConvertCmd() *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a Markdown file (or stdin) to plain text",
		Long: `Convert Markdown to plain text with literal list numbering.

  - Top-level bullets (indent of 0 to 2) become 1. 2. 3. ...
  - Indented bullets (indent of 3 or more) become (1) (2) (3) ...
  - A blank line after an indented item restarts the (1) numbering.
  - Heading (#), bold (**), italic (*), and code (` + "`" + `) markers are removed.
  - Link text is kept and the URL is dropped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, f)
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the result to this file instead of stdout")
	cmd.Flags().BoolVarP(&f.copy, "copy", "c", false, "copy the result to the system clipboard")
	cmd.Flags().BoolVar(&f.stats, "stats", false, "print a summary of the Markdown found in the input to stderr")
	cmd.Flags().StringVar(&f.server, "server", "", "convert through a running md2txt server at this URL")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func runConvert(cmd *cobra.Command, args []string, f convertFlags) error {
	input, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	var output string
	var stats md2txt.Summary
	if f.server != "" {
		res, err := client.New(f.server, nil).Convert(cmdContext(cmd), input, client.ConvertOptions{Stats: f.stats})
		if err != nil {
			return err
		}
		output = res.Output
		if res.Stats != nil {
			stats = md2txt.Summary(*res.Stats)
		}
	} else {
		output = md2txt.Convert(input)
		if f.stats {
			stats = md2txt.Inspect(input)
		}
	}

	if f.output != "" {
		if err := os.WriteFile(f.output, []byte(output), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.output, err)
		}
	} else if output != "" {
		fmt.Fprintln(cmd.OutOrStdout(), output)
	}

	if f.stats {
		printStats(cmd.ErrOrStderr(), stats)
	}
	if f.copy {
		copyOutput(cmd.ErrOrStderr(), output)
	}
	return nil
}

// 复制失败不影响退出码，只提示用户手动复制
func copyOutput(w io.Writer, output string) {
	err := copyText(output)
	switch {
	case err == nil:
		fmt.Fprintln(w, "Copied to clipboard.")
	case errors.Is(err, clipboard.ErrEmpty):
		fmt.Fprintln(w, "Nothing to copy.")
	default:
		fmt.Fprintf(w, "Copy failed, please copy the output manually: %v\n", err)
	}
}

func printStats(w io.Writer, s md2txt.Summary) {
	fmt.Fprintf(w, "headings: %d\nlist items: %d\nemphasis: %d\nstrong: %d\ncode spans: %d\ncode blocks: %d\nlinks: %d\nimages: %d\n",
		s.Headings, s.ListItems, s.Emphasis, s.Strong, s.CodeSpans, s.CodeBlocks, s.Links, s.Images)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
