package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestHelpAndVersion(t *testing.T) {
	tests := []struct {
		args     []string
		expected string
	}{
		{nil, "Usage: rawg-game-hub"},
		{[]string{"help"}, "Usage: rawg-game-hub"},
		{[]string{"-h"}, "Usage: rawg-game-hub"},
		{[]string{"version"}, "rawg-game-hub " + version},
		{[]string{"--version"}, "rawg-game-hub " + version},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		if err := runCLI(tt.args, &out); err != nil {
			t.Errorf("runCLI(%v) failed: %v", tt.args, err)
			continue
		}
		if !strings.Contains(out.String(), tt.expected) {
			t.Errorf("runCLI(%v) = %q, want it to contain %q", tt.args, out.String(), tt.expected)
		}
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("RAWG_API_KEY", "")
	_ = os.Unsetenv("RAWG_API_KEY")

	err := runCLI([]string{"games"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "RAWG_API_KEY") {
		t.Errorf("Expected missing key error, got %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	t.Setenv("RAWG_API_KEY", "test-key")

	err := runCLI([]string{"strength"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("Expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command: strength") {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "[developer games genres platforms]") {
		t.Errorf("Expected available commands in error, got %v", err)
	}
}
