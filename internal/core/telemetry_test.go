// AngelaMos | 2026
// telemetry_test.go

package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/carterperez-dev/crm-backend/internal/config"
)

func TestTelemetryDisabled(t *testing.T) {
	tel, err := NewTelemetry(t.Context(), config.OtelConfig{Enabled: false}, config.AppConfig{})
	if err != nil {
		t.Fatalf("new telemetry: %v", err)
	}
	if tel.Enabled {
		t.Fatal("telemetry enabled without configuration")
	}
	if err := tel.Shutdown(t.Context()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	var nilTel *Telemetry
	if err := nilTel.Shutdown(t.Context()); err != nil {
		t.Fatalf("nil shutdown: %v", err)
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
		{0, "TraceIDRatioBased{0.1}"},
		{-1, "TraceIDRatioBased{0.1}"},
	}

	for _, tt := range tests {
		got := samplerFor(tt.rate).Description()
		if !strings.HasPrefix(got, "ParentBased") || !strings.Contains(got, tt.want) {
			t.Errorf("samplerFor(%v) = %s, want ParentBased with %s", tt.rate, got, tt.want)
		}
	}
}

func TestSpanHelpersWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(t.Context(), "test.op")
	EndSpan(span, errors.New("boom"))

	if id := TraceIDFromContext(ctx); id != "" {
		t.Fatalf("trace id = %q from no-op provider", id)
	}
}
