package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func preserveGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func TestSetup_Disabled(t *testing.T) {
	preserveGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), Config{Endpoint: "ignored:4318"}, "v0.0.0")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Error("disabled telemetry replaced the global provider")
	}
}

func TestSetup_Enabled(t *testing.T) {
	preserveGlobals(t)

	cfg := Config{Enabled: true, Insecure: true, Endpoint: "127.0.0.1:1"}
	shutdown, err := Setup(context.Background(), cfg, "v1.2.3")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatal("global provider is not an SDK provider")
	}

	_, span := otel.Tracer("test").Start(context.Background(), "span")
	span.End()

	// Nothing listens on the endpoint; shutdown only has to return.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.ServiceName != "warden" || cfg.SampleRatio != 1 {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	cfg.SampleRatio = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("sample_ratio 1.5 accepted")
	}
}
