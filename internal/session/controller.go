// Package session ties the control channel to the scan capability for the
// lifetime of one paired session. It reacts to remote control messages by
// driving the provider, and fans channel events and local capture events
// out to registered sinks through one uniform dispatch surface.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pkt.systems/pslog"

	"pkt.systems/roomlink/internal/bridge"
	"pkt.systems/roomlink/internal/capability"
	"pkt.systems/roomlink/schema"
)

// Synthetic locally-sourced event names surfaced to sinks when the
// capability cannot serve a request.
const (
	EventCapabilityUnavailable = "capability_unavailable"
	EventScanStartFailed       = "scan_start_failed"
	EventScanStopFailed        = "scan_stop_failed"
)

// ControlChannel is the slice of the channel API the controller needs.
type ControlChannel interface {
	Subscribe(h schema.Handler) func()
	Send(m schema.Message)
}

// Controller owns one session: a subscribed control channel, the scan
// capability, and the sinks observing both.
type Controller struct {
	ch       ControlChannel
	provider capability.Provider
	log      pslog.Logger

	mu          sync.Mutex
	sinks       map[int]schema.Handler
	nextSink    int
	unsubscribe func()
	bridge      *bridge.Bridge
	ctx         context.Context
	token       string
	supported   bool
	started     bool
	closed      bool
}

// New constructs a Controller. The provider may be nil on devices without
// the scan capability.
func New(ch ControlChannel, provider capability.Provider, logger pslog.Logger) *Controller {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Controller{
		ch:       ch,
		provider: provider,
		log:      logger,
		sinks:    make(map[int]schema.Handler),
	}
}

// Subscribe registers a sink for session events and returns a disposer.
func (s *Controller) Subscribe(h schema.Handler) func() {
	s.mu.Lock()
	id := s.nextSink
	s.nextSink++
	s.sinks[id] = h
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.sinks, id)
		s.mu.Unlock()
	}
}

// Start begins the session. Capability absence is reported once, to the
// sinks, and does not fail the session: the operator can still observe
// console traffic.
func (s *Controller) Start(ctx context.Context, token string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return schema.ErrChannelClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.ctx = ctx
	s.token = token
	s.supported = s.provider != nil && s.provider.IsSupported(ctx)
	supported := s.supported
	s.mu.Unlock()

	s.attach()

	if !supported {
		s.log.Warn("scan capability unavailable on this device")
		s.emit(schema.Event{
			Kind:    schema.EventCapture,
			Source:  schema.SourceLocal,
			Capture: &schema.CaptureEvent{Name: EventCapabilityUnavailable},
		})
	}
	return nil
}

func (s *Controller) attach() {
	unsubscribe := s.ch.Subscribe(s.onChannelEvent)
	s.mu.Lock()
	supported := s.supported
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	if supported {
		captureBridge := bridge.Attach(s.provider, s.emit)
		s.mu.Lock()
		s.bridge = captureBridge
		s.mu.Unlock()
	}
}

// Close ends the session: the channel subscription is disposed, the
// bridge detached, and any running scan stopped best-effort. Idempotent.
func (s *Controller) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	captureBridge := s.bridge
	s.bridge = nil
	provider := s.provider
	supported := s.supported
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if captureBridge != nil {
		captureBridge.Detach()
	}
	if provider != nil && supported {
		if err := provider.StopScan(context.Background()); err != nil && !errors.Is(err, schema.ErrNoScan) {
			s.log.Warn("stopping scan on session close failed", "err", err)
		}
	}
}

func (s *Controller) onChannelEvent(event schema.Event) {
	s.emit(event)
	if event.Kind != schema.EventMessage {
		return
	}
	control, ok := event.Message.(schema.Control)
	if !ok {
		return
	}
	switch control.Action {
	case schema.ActionStart:
		s.handleStart()
	case schema.ActionStop:
		s.handleStop()
	}
}

func (s *Controller) handleStart() {
	s.mu.Lock()
	ctx := s.ctx
	token := s.token
	supported := s.supported
	s.mu.Unlock()
	if !supported {
		s.log.Warn("ignoring start: scan capability unavailable")
		return
	}
	if err := s.provider.StartScan(ctx, token); err != nil {
		if errors.Is(err, schema.ErrScanActive) {
			s.log.Debug("start ignored: scan already active")
			return
		}
		s.log.Error("scan start failed", "err", err)
		s.emit(schema.Event{
			Kind:    schema.EventCapture,
			Source:  schema.SourceLocal,
			Capture: &schema.CaptureEvent{Name: EventScanStartFailed},
		})
	}
}

func (s *Controller) handleStop() {
	s.mu.Lock()
	ctx := s.ctx
	supported := s.supported
	s.mu.Unlock()
	if !supported {
		return
	}
	if err := s.provider.StopScan(ctx); err != nil {
		if errors.Is(err, schema.ErrNoScan) {
			s.log.Debug("stop ignored: no scan active")
			return
		}
		s.log.Error("scan stop failed", "err", err)
		s.emit(schema.Event{
			Kind:    schema.EventCapture,
			Source:  schema.SourceLocal,
			Capture: &schema.CaptureEvent{Name: EventScanStopFailed},
		})
	}
}

// emit fans one event out to the sinks in registration order. A sink
// panic does not break delivery to the others.
func (s *Controller) emit(event schema.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ids := make([]int, 0, len(s.sinks))
	for id := range s.sinks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	sinks := make([]schema.Handler, 0, len(ids))
	for _, id := range ids {
		sinks = append(sinks, s.sinks[id])
	}
	s.mu.Unlock()
	for _, sink := range sinks {
		s.invoke(sink, event)
	}
}

func (s *Controller) invoke(sink schema.Handler, event schema.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("session sink panicked", "kind", event.Kind, "panic", r)
		}
	}()
	sink(event)
}
