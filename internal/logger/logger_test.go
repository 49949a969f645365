package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	_ = r.Close()
	return buf.String()
}

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestInit_DevStd_TextToStdout(t *testing.T) {
	restoreDefault(t)

	out := captureStdout(t, func() {
		Init(Config{Service: "demo", Version: "v0.0.1", Env: EnvDev, Backend: BackendStd, Level: slog.LevelDebug})
		slog.Info("Hello world")
	})

	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected text output in dev/std, got JSON: %s", out)
	}
	for _, want := range []string{"Hello world", "service=demo", "env=dev", "version=v0.0.1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("%q missing: %s", want, out)
		}
	}
}

func TestInit_ProdStd_JSON(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	Init(Config{Service: "demo", Env: EnvProd, Backend: BackendStd, Output: &buf})
	slog.Info("booted")

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected JSON, got %s, err=%v", buf.String(), err)
	}
	if m["service"] != "demo" || m["env"] != "prod" {
		t.Fatalf("attrs missing: %v", m)
	}
}

func TestInit_ProdZap_JSON(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	Init(Config{
		Service:          "demo",
		Version:          "1.2.3",
		Env:              EnvProd,
		Backend:          BackendZap,
		Level:            slog.LevelInfo,
		SampleInitial:    100000,
		SampleThereafter: 100000,
		Output:           &buf,
	})
	slog.Debug("hidden")
	slog.Info("booted", slog.String("k", "v"))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected one JSON line, got %s, err=%v", buf.String(), err)
	}
	if m["msg"] != "booted" || m["level"] != "INFO" || m["k"] != "v" {
		t.Fatalf("unexpected record: %v", m)
	}
	if m["service"] != "demo" || m["env"] != "prod" || m["version"] != "1.2.3" || m["instance_id"] == nil {
		t.Fatalf("common attrs missing: %v", m)
	}
}

func TestZap_PicksTraceFromContext(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	Init(Config{Service: "demo", Env: EnvProd, Backend: BackendZap, Output: &buf})

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTracerProvider(tp)

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	slog.InfoContext(ctx, "with trace")
	span.End()

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected JSON, got %s, err=%v", buf.String(), err)
	}
	if m["trace_id"] != span.SpanContext().TraceID().String() || m["span_id"] == nil {
		t.Fatalf("trace ids missing: %v", m)
	}
}

func TestFromCtx(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	Init(Config{Service: "demo", Env: EnvDev, Backend: BackendStd, Output: &buf})

	if AttrsFromCtx(context.Background()) != nil {
		t.Fatal("no span, no attrs")
	}

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	FromCtx(ctx).Info("traced")
	if !strings.Contains(buf.String(), "trace_id="+span.SpanContext().TraceID().String()) {
		t.Fatalf("trace_id missing: %s", buf.String())
	}
}

func TestDetectEnv(t *testing.T) {
	cases := map[string]Env{
		"":           EnvDev,
		"stage":      EnvStage,
		"preprod":    EnvStage,
		"PROD":       EnvProd,
		"production": EnvProd,
		"whatever":   EnvDev,
	}
	for raw, want := range cases {
		t.Setenv("APP_ENV", raw)
		if got := DetectEnv(); got != want {
			t.Fatalf("APP_ENV=%q: got %q, want %q", raw, got, want)
		}
	}
}

func TestParseLevelAndBackend(t *testing.T) {
	if lvl, err := ParseLevel("debug"); err != nil || lvl != slog.LevelDebug {
		t.Fatalf("debug: %v %v", lvl, err)
	}
	if lvl, err := ParseLevel(""); err != nil || lvl != slog.LevelInfo {
		t.Fatalf("empty: %v %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if b, err := ParseBackend("ZAP"); err != nil || b != BackendZap {
		t.Fatalf("zap: %v %v", b, err)
	}
	if _, err := ParseBackend("logrus"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
