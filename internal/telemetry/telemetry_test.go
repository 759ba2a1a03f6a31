package telemetry

import (
	"context"
	"testing"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "webshare-addon"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected non-nil shutdown")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("expected noop shutdown, got %v", err)
	}
}

func TestSampleRatioClamps(t *testing.T) {
	if got := sampleRatio(0); got != 1 {
		t.Fatalf("expected 1 for unset ratio, got %v", got)
	}
	if got := sampleRatio(0.25); got != 0.25 {
		t.Fatalf("expected 0.25, got %v", got)
	}
	if got := sampleRatio(7); got != 1 {
		t.Fatalf("expected out of range ratio to clamp to 1, got %v", got)
	}
	if got := stripScheme("https://collector:4318"); got != "collector:4318" {
		t.Fatalf("expected scheme stripped, got %q", got)
	}
}
