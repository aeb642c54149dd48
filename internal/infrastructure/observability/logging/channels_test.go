package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newBufferedLogger(t *testing.T) (*ChanneledLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.OutputToConsole = false
	cfg.Output = buf
	logger, err := NewChanneledLogger(cfg)
	if err != nil {
		t.Fatalf("NewChanneledLogger: %v", err)
	}
	return logger, buf
}

func TestChannelAttributeIsAttached(t *testing.T) {
	logger, buf := newBufferedLogger(t)

	logger.Sink().Info("event reported", "event", "scroll_depth")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["channel"] != "sink" || line["event"] != "scroll_depth" {
		t.Fatalf("log line = %v", line)
	}
}

func TestSetChannelLevel(t *testing.T) {
	logger, buf := newBufferedLogger(t)

	logger.Tracking().Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug written at info level: %q", buf.String())
	}

	if err := logger.SetChannelLevel(ChannelTracking, slog.LevelDebug); err != nil {
		t.Fatalf("SetChannelLevel: %v", err)
	}
	buf.Reset()
	logger.Tracking().Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug line missing after level change: %q", buf.String())
	}
	if got := logger.GetChannelLevels()["tracking"]; got != "DEBUG" {
		t.Fatalf("tracking level = %s, want DEBUG", got)
	}

	if err := logger.SetChannelLevel("nope", slog.LevelDebug); err == nil {
		t.Fatal("unknown channel should fail")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDiscardLoggerHasEveryChannel(t *testing.T) {
	logger := NewDiscardLogger()
	if got := len(logger.ChannelNames()); got != len(AllChannels) {
		t.Fatalf("channels = %d, want %d", got, len(AllChannels))
	}
	logger.HTTP().Info("dropped")
}
