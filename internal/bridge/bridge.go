// Package bridge adapts the capability provider's native event stream
// into the same handler-dispatch contract the control channel uses, so
// downstream session logic treats remote control messages and local
// capture progress uniformly.
package bridge

import (
	"sync"

	"pkt.systems/roomlink/internal/capability"
	"pkt.systems/roomlink/schema"
)

// Bridge forwards capture events into a dispatch function, tagged as
// locally sourced. A detached bridge never invokes the dispatch function
// again, even if the provider delivers late events.
type Bridge struct {
	mu       sync.Mutex
	detached bool
	cancel   func()
}

// Attach subscribes to the provider and forwards its events to dispatch.
func Attach(provider capability.Provider, dispatch func(schema.Event)) *Bridge {
	b := &Bridge{}
	b.cancel = provider.Subscribe(func(event schema.CaptureEvent) {
		b.mu.Lock()
		dead := b.detached
		b.mu.Unlock()
		if dead {
			return
		}
		forwarded := event
		dispatch(schema.Event{
			Kind:    schema.EventCapture,
			Source:  schema.SourceLocal,
			Capture: &forwarded,
		})
	})
	return b
}

// Detach unsubscribes from the provider. Idempotent.
func (b *Bridge) Detach() {
	b.mu.Lock()
	already := b.detached
	b.detached = true
	cancel := b.cancel
	b.mu.Unlock()
	if !already && cancel != nil {
		cancel()
	}
}
