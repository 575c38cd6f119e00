package main

import (
	"os"
	"path/filepath"
	"testing"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"eemetrics"}, args...)
	t.Cleanup(func() { os.Args = old })
}

func TestRun(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("EEMETRICS_LOG_LEVEL", "error")
	missing := filepath.Join(t.TempDir(), "eemetrics.yaml")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"--help"}, 0},
		{"score", []string{"score", "coverage", "85"}, 0},
		{"unknown command", []string{"invalid-cmd-999"}, 1},
		{"mapped error", []string{"--config", missing, "github", "repos"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, tt.args...)
			if got := run(); got != tt.want {
				t.Errorf("run() = %d, want %d", got, tt.want)
			}
		})
	}
}
