package commands

import (
	"log/slog"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/rubenmavarezb/aidf/internal/config"
)

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		slog.Debug("config not found, using defaults", "path", path, "error", err)
		return &config.Config{}, nil
	}
	return cfg, nil
}

// renderMarkdown renders body as a styled terminal box when stdout is a
// TTY, falling back to plain text for CI/non-interactive output.
func renderMarkdown(body string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return body
	}
	out, err := glamour.Render(body, "dark")
	if err != nil {
		return body
	}
	return out
}
