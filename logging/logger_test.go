package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriterAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("declfast", "info", &buf)

	log.Info("hello")

	line := buf.String()
	if !strings.Contains(line, "app=declfast") {
		t.Errorf("missing app attribute: %s", line)
	}
	if !strings.Contains(line, "pid=") {
		t.Errorf("missing pid attribute: %s", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("declfast", "warn", &buf)

	log.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}

	log.Warn("loud")
	if buf.Len() == 0 {
		t.Error("warn suppressed at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
