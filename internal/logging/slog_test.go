package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	l := slog.New(h)
	return NewSlogLogger(l), &buf
}

func TestSlogLogger_Levels_WriteExpectedOutput(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()

	tests := []struct {
		level string
		msg   string
		key   string
		val   string
	}{
		{"DEBUG", "dbg", "a", "1"},
		{"INFO", "inf", "b", "2"},
		{"WARN", "wrn", "c", "3"},
		{"ERROR", "err", "d", "4"},
	}

	for _, tc := range tests {
		if !strings.Contains(out, "level="+tc.level) {
			t.Fatalf("expected line with level=%s in output:\n%s", tc.level, out)
		}
		if !strings.Contains(out, "msg="+tc.msg) {
			t.Fatalf("expected line with msg=%q in output:\n%s", tc.msg, out)
		}
		if !strings.Contains(out, tc.key+"="+tc.val) {
			t.Fatalf("expected attribute %s=%s in output:\n%s", tc.key, tc.val, out)
		}
	}
}

func TestSlogLogger_With_AddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log2 := log.With("req_id", "123", "user", "alice")
	log2.Info(ctx, "hello", "k", "v")

	out := buf.String()
	wantSubs := []string{
		"level=INFO",
		"msg=hello",
		"req_id=123",
		"user=alice",
		"k=v",
	}
	for _, s := range wantSubs {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestSlogLogger_ContextDoesNotPanic(t *testing.T) {
	log, _ := newTestLogger(t)

	ctx := context.TODO()
	log.Info(ctx, "ctx-ok")
	log.Debug(ctx, "ctx-ok")
	log.Warn(ctx, "ctx-ok")
	log.Error(ctx, "ctx-ok")
}

func TestZapLogger_WritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapLogger(zap.New(core)).With("module", "sync")
	ctx := context.Background()

	log.Info(ctx, "cycle finished", "entity", "patients")
	log.Error(ctx, "push failed", "entity", "appointments")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["module"] != "sync" || fields["entity"] != "patients" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level, got %v", entries[1].Level)
	}
}

func TestNewSlog_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinic.log")
	log, closer := NewSlog(Options{Level: "debug", File: path})
	log.Debug(context.Background(), "hello", "k", "v")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "msg=hello") {
		t.Fatalf("log file does not contain entry: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG") != slog.LevelDebug || ParseLevel("warning") != slog.LevelWarn || ParseLevel("nope") != slog.LevelInfo {
		t.Fatal("unexpected level mapping")
	}
}

func TestWithFields_AppendedToRecords(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := WithFields(context.Background(), "cycle_id", "c1")
	ctx = WithFields(ctx, "entity", "patients")

	log.Info(ctx, "pushed", "count", 3)

	out := buf.String()
	for _, s := range []string{"count=3", "cycle_id=c1", "entity=patients"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestSensitiveValuesRedacted(t *testing.T) {
	log, buf := newTestLogger(t)
	args := []any{"phone", "9876543210", "pin", "1234"}

	log.With("access_token", "abcd9999").Warn(context.Background(), "login", args...)

	out := buf.String()
	if strings.Contains(out, "1234") || strings.Contains(out, "abcd9999") {
		t.Fatalf("secret leaked into output:\n%s", out)
	}
	if !strings.Contains(out, "pin="+redacted) || !strings.Contains(out, "phone=9876543210") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if args[3] != "1234" {
		t.Fatal("caller args were modified")
	}
}

func TestZapLogger_ContextFieldsAndRedaction(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapLogger(zap.New(core))
	ctx := WithFields(context.Background(), "method", "/clinicsync.v1.UserService/Login")

	log.Info(ctx, "login", "otp", "000000")

	fields := logs.All()[0].ContextMap()
	if fields["method"] != "/clinicsync.v1.UserService/Login" || fields["otp"] != redacted {
		t.Fatalf("unexpected fields: %v", fields)
	}
}
