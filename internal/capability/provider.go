// Package capability consumes the platform room-scan capability as an
// opaque external provider: four operations plus an event stream of
// capture-progress notifications. The provider's internals (the actual
// 3D reconstruction) are not modeled here.
package capability

import (
	"context"

	"pkt.systems/roomlink/schema"
)

// Provider is the scan capability consumed by the session layer.
type Provider interface {
	// IsSupported reports whether the device can capture rooms at all.
	IsSupported(ctx context.Context) bool
	// StartScan begins a capture session identified by the pairing token.
	StartScan(ctx context.Context, token string) error
	// StopScan ends the running capture session.
	StopScan(ctx context.Context) error
	// SetUploadTarget points chunk upload at the console host. Setting
	// the same value twice is a no-op; last writer wins.
	SetUploadTarget(host string)
	// Subscribe registers a listener for capture-progress events and
	// returns a disposer.
	Subscribe(h func(schema.CaptureEvent)) func()
}
