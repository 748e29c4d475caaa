package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupWriterLevels(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	l := SetupWriter(&buf, false)
	l.Debug("hidden")
	l.Info("shown", "kind", "reverb")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "kind=reverb") {
		t.Fatalf("unexpected output: %s", buf.String())
	}

	buf.Reset()
	l = SetupWriter(&buf, true)
	l.Debug("detail")
	if !strings.Contains(buf.String(), "detail") || !strings.Contains(buf.String(), "source=") {
		t.Fatalf("debug output missing source: %s", buf.String())
	}
	if slog.Default() != l {
		t.Fatalf("default logger not installed")
	}
}
