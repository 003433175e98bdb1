package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithAttrsOverridesByKey(t *testing.T) {
	ctx := WithAttrs(context.Background(), slog.String("component", "a"), slog.Int("manuscript_id", 1))
	ctx = WithAttrs(ctx, slog.String("component", "b"))

	attrs := Attrs(ctx)
	if len(attrs) != 2 {
		t.Fatalf("Attrs() len = %d, want 2", len(attrs))
	}
	if attrs[0].Key != "component" || attrs[0].Value.String() != "b" {
		t.Fatalf("attrs[0] = %v", attrs[0])
	}
}

func TestLogWritesContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, "json", "debug"))
	ctx = WithAttrs(ctx, slog.String("component", "usecase.editorial"))

	Debug(ctx, "screen applied", slog.String("decision", "proceed"))

	out := buf.String()
	if !strings.Contains(out, `"component":"usecase.editorial"`) || !strings.Contains(out, `"decision":"proceed"`) {
		t.Fatalf("log output = %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, "text", "warn"))

	Info(ctx, "hidden")
	Warn(ctx, "shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("log output = %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
