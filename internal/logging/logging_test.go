package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/codetype/internal/config"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "codetype.log")
	logger, closer, err := New(config.LogConfig{Level: "debug", Format: "json", File: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}
	logger.WithField("lesson", "go-maps").Debug("rejected keystroke")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"lesson":"go-maps"`) {
		t.Fatalf("expected structured field in log, got %s", data)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, _, err := New(config.LogConfig{Level: "loud", File: filepath.Join(t.TempDir(), "x.log")}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewRejectsBadFormat(t *testing.T) {
	if _, _, err := New(config.LogConfig{Format: "xml", File: filepath.Join(t.TempDir(), "x.log")}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
