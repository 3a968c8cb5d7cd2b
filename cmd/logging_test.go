package cmd

import (
	"os"
	"strings"
	"testing"
)

// TestNoStderrInCommands verifies that the long-running commands do not
// write diagnostics with fmt.Fprintf(os.Stderr, ...); those go through slog.
func TestNoStderrInCommands(t *testing.T) {
	files := []string{
		"embed.go",
		"cluster.go",
		"show.go",
	}

	for _, f := range files {
		t.Run(f, func(t *testing.T) {
			data, err := os.ReadFile(f)
			if err != nil {
				t.Fatalf("failed to read %s: %v", f, err)
			}
			content := string(data)

			if strings.Contains(content, "fmt.Fprintf(os.Stderr") {
				t.Errorf("%s contains fmt.Fprintf(os.Stderr, ...); use slog instead", f)
			}
			if strings.Contains(content, "fmt.Fprintln(os.Stderr") {
				t.Errorf("%s contains fmt.Fprintln(os.Stderr, ...); use slog instead", f)
			}
		})
	}
}

// TestSetupLoggerReturnsLogger verifies setupLogger returns a non-nil logger.
func TestSetupLoggerReturnsLogger(t *testing.T) {
	logger := setupLogger()
	if logger == nil {
		t.Fatal("setupLogger() returned nil")
	}
}

// TestSetupLoggerVerbose verifies verbose flag affects logger level.
func TestSetupLoggerVerbose(t *testing.T) {
	oldVerbose := verbose
	defer func() { verbose = oldVerbose }()

	verbose = false
	if setupLogger().Enabled(nil, -4) {
		t.Error("debug should be disabled without --verbose")
	}

	verbose = true
	if !setupLogger().Enabled(nil, -4) {
		t.Error("debug should be enabled with --verbose")
	}
}
