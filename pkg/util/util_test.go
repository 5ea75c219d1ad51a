package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestManualClock(t *testing.T) {
	start := time.UnixMilli(1770595200000)
	c := NewManualClock(start)

	c.Advance(time.Minute)
	if got := c.Now(); !got.Equal(start.Add(time.Minute)) {
		t.Errorf("Now() = %v, want %v", got, start.Add(time.Minute))
	}

	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("Set did not move the clock")
	}
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sequencer.log")
	logger, err := NewLoggerWithFile(path, true)
	if err != nil {
		t.Fatalf("NewLoggerWithFile: %v", err)
	}
	logger.Sugar().Debugw("order_accepted", "seq", 1)
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"order_accepted"`) || !strings.Contains(string(data), `"seq":1`) {
		t.Errorf("log file missing entry: %s", data)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	quiet, err := NewLogger(false)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if quiet.Core().Enabled(zap.DebugLevel) {
		t.Error("debug enabled without verbose")
	}

	verbose, err := NewLogger(true)
	if err != nil {
		t.Fatalf("NewLogger(verbose): %v", err)
	}
	if !verbose.Core().Enabled(zap.DebugLevel) {
		t.Error("debug disabled with verbose")
	}
}
