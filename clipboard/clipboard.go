package clipboard

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnavailable means no clipboard tool accepted the text.
var ErrUnavailable = errors.New("clipboard unavailable")

// ErrEmpty is returned for empty text; there is nothing to copy.
var ErrEmpty = errors.New("nothing to copy")

type command struct {
	name string
	args []string
}

// 按顺序尝试，前一个失败再用下一个
func candidates(goos string) []command {
	switch goos {
	case "darwin":
		return []command{{"pbcopy", nil}}
	case "windows":
		return []command{{"clip", nil}}
	default:
		return []command{
			{"wl-copy", nil},
			{"xclip", []string{"-selection", "clipboard"}},
			{"xsel", []string{"--clipboard", "--input"}},
		}
	}
}

// runner is replaced in tests.
var runner = func(name string, args []string, input string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(input)
	return cmd.Run()
}

// CopyText copies text to the system clipboard, trying each available
// tool in turn. The text is copied byte for byte.
func CopyText(text string) error {
	if text == "" {
		return ErrEmpty
	}
	var errs []error
	for _, c := range candidates(runtime.GOOS) {
		err := runner(c.name, c.args, text)
		if err == nil {
			return nil
		}
		slog.Debug("clipboard tool failed", "tool", c.name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}
