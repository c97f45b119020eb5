package tracing

import (
	"context"
	"testing"
	"time"

	"github.com/mkoval/inferbench/internal/config"
)

func TestInitDisabled(t *testing.T) {
	p, err := Init(context.Background(), config.TracingConfig{})
	if err != nil {
		t.Fatalf("Init with empty endpoint failed: %v", err)
	}
	if p.Tracer() == nil {
		t.Fatal("disabled provider must still hand out a tracer")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown on disabled provider = %v, want nil", err)
	}
}

func TestInitUnsupportedProtocol(t *testing.T) {
	_, err := Init(context.Background(), config.TracingConfig{
		Endpoint: "localhost:4317",
		Protocol: "carrier-pigeon",
	})
	if err == nil {
		t.Fatal("expected error for unsupported protocol")
	}
}

func TestInitGRPC(t *testing.T) {
	// The OTLP gRPC exporter dials lazily, so Init succeeds without a
	// listening collector.
	p, err := Init(context.Background(), config.TracingConfig{
		Endpoint: "localhost:4317",
		Protocol: "grpc",
		Insecure: true,
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if p.Tracer() == nil {
		t.Fatal("enabled provider returned nil tracer")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestSpanLifecycle(t *testing.T) {
	p := &Provider{}
	_, span := StartInferSpan(context.Background(), p.Tracer(), "CPU", "tinynet")
	EndSpan(span, nil)

	_, span = StartInferSpan(context.Background(), p.Tracer(), "CPU", "tinynet")
	EndSpan(span, context.DeadlineExceeded)
}

func TestNilProvider(t *testing.T) {
	var p *Provider
	if p.Tracer() == nil {
		t.Fatal("nil provider must fall back to a no-op tracer")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown on nil provider = %v, want nil", err)
	}
}
