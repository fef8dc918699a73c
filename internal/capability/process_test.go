package capability

import (
	"context"
	"errors"
	"testing"

	"pkt.systems/roomlink/schema"
)

func TestIsSupportedWithMissingBinary(t *testing.T) {
	p := NewProcessProvider(ProcessConfig{BinaryPath: "roomscan-helper-definitely-not-installed"})
	if p.IsSupported(context.Background()) {
		t.Fatalf("expected unsupported when binary is missing")
	}
}

func TestStartScanWithMissingBinary(t *testing.T) {
	p := NewProcessProvider(ProcessConfig{BinaryPath: "roomscan-helper-definitely-not-installed"})
	err := p.StartScan(context.Background(), "abc123")
	if !errors.Is(err, schema.ErrCapabilityUnavailable) {
		t.Fatalf("expected capability unavailable, got %v", err)
	}
}

func TestStopScanWithoutActiveScan(t *testing.T) {
	p := NewProcessProvider(ProcessConfig{})
	if err := p.StopScan(context.Background()); !errors.Is(err, schema.ErrNoScan) {
		t.Fatalf("expected no-scan error, got %v", err)
	}
}

func TestSetUploadTargetIdempotent(t *testing.T) {
	p := NewProcessProvider(ProcessConfig{})
	p.SetUploadTarget("10.0.0.5")
	p.SetUploadTarget("10.0.0.5")
	p.SetUploadTarget("10.0.0.6")
	p.mu.Lock()
	target := p.uploadTarget
	p.mu.Unlock()
	if target != "10.0.0.6" {
		t.Fatalf("expected last writer to win, got %q", target)
	}
}

func TestSubscribeDisposer(t *testing.T) {
	p := NewProcessProvider(ProcessConfig{})
	var got []string
	cancel := p.Subscribe(func(event schema.CaptureEvent) {
		got = append(got, event.Name)
	})
	p.emit(schema.CaptureEvent{Name: "one"})
	cancel()
	p.emit(schema.CaptureEvent{Name: "two"})
	if len(got) != 1 || got[0] != "one" {
		t.Fatalf("unexpected events after disposal: %v", got)
	}
}
