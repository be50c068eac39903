package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

// captureStdout runs fn with os.Stdout redirected and returns what it printed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = oldStdout }()

	fn()

	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	_ = r.Close()
	return buf.String()
}

func TestPrintVersionInfo(t *testing.T) {
	origVersion, origBuild, origCommit := Version, BuildTime, GitCommit
	defer func() { Version, BuildTime, GitCommit = origVersion, origBuild, origCommit }()

	Version = "1.2.3"
	BuildTime = "2026-01-02T03:04:05Z"
	GitCommit = "abc1234"

	out := captureStdout(t, func() {
		if err := printVersionInfo(); err != nil {
			t.Errorf("printVersionInfo(): %v", err)
		}
	})

	for _, want := range []string{"Owlia v1.2.3", "Build: 2026-01-02T03:04:05Z", "Commit: abc1234"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q\nGot: %s", want, out)
		}
	}
}

func TestPrintHelp(t *testing.T) {
	out := captureStdout(t, printHelp)

	for _, want := range []string{"owlia serve", "owlia ingest", "GEMINI_API_KEY", "DATABASE_URL"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestInitLogging_DebugEnv(t *testing.T) {
	orig := slog.Default()
	defer slog.SetDefault(orig)

	t.Setenv("DEBUG", "1")
	initLogging()
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("DEBUG env should enable debug level")
	}

	t.Setenv("DEBUG", "")
	initLogging()
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be off without DEBUG env")
	}
}
