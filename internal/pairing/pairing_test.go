package pairing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pkt.systems/roomlink/schema"
)

type fakeChannel struct {
	mu          sync.Mutex
	connectErr  error
	connects    []schema.Credentials
	disconnects int
	// hold, when non-nil, blocks Connect until the context is cancelled.
	hold chan struct{}
}

func (c *fakeChannel) Connect(ctx context.Context, creds schema.Credentials) error {
	c.mu.Lock()
	c.connects = append(c.connects, creds)
	hold := c.hold
	err := c.connectErr
	c.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (c *fakeChannel) Disconnect() {
	c.mu.Lock()
	c.disconnects++
	c.mu.Unlock()
}

type uploadRecorder struct {
	mu      sync.Mutex
	targets []string
}

func (r *uploadRecorder) IsSupported(context.Context) bool        { return true }
func (r *uploadRecorder) StartScan(context.Context, string) error { return nil }
func (r *uploadRecorder) StopScan(context.Context) error          { return nil }
func (r *uploadRecorder) Subscribe(func(schema.CaptureEvent)) func() {
	return func() {}
}

func (r *uploadRecorder) SetUploadTarget(host string) {
	r.mu.Lock()
	r.targets = append(r.targets, host)
	r.mu.Unlock()
}

func TestPairValidatesTokenFirst(t *testing.T) {
	ch := &fakeChannel{}
	c := New(ch, nil, nil)
	outcome := c.Pair(context.Background(), "10.0.0.5", "")
	if outcome.Result != ResultInvalid || outcome.Field != FieldToken {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(ch.connects) != 0 {
		t.Fatalf("invalid input reached the network")
	}
}

func TestPairValidatesAddress(t *testing.T) {
	ch := &fakeChannel{}
	c := New(ch, nil, nil)
	for _, host := range []string{"", "256.1.1.1", "laptop.local", "1.1.1"} {
		outcome := c.Pair(context.Background(), host, "abc123")
		if outcome.Result != ResultInvalid || outcome.Field != FieldAddress {
			t.Fatalf("host %q: unexpected outcome %+v", host, outcome)
		}
	}
	if len(ch.connects) != 0 {
		t.Fatalf("invalid input reached the network")
	}
}

func TestPairSuccessConfiguresUploadTarget(t *testing.T) {
	ch := &fakeChannel{}
	provider := &uploadRecorder{}
	c := New(ch, provider, nil)

	outcome := c.Pair(context.Background(), "10.0.0.5", "abc123")
	if outcome.Result != ResultSuccess {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(ch.connects) != 1 {
		t.Fatalf("expected one connect, got %d", len(ch.connects))
	}
	if ch.connects[0] != (schema.Credentials{Token: "abc123", Host: "10.0.0.5"}) {
		t.Fatalf("unexpected credentials: %+v", ch.connects[0])
	}
	if len(provider.targets) != 1 || provider.targets[0] != "10.0.0.5" {
		t.Fatalf("unexpected upload targets: %v", provider.targets)
	}
}

func TestPairConnectFailure(t *testing.T) {
	wantErr := errors.New("connection refused")
	ch := &fakeChannel{connectErr: wantErr}
	provider := &uploadRecorder{}
	c := New(ch, provider, nil)

	outcome := c.Pair(context.Background(), "10.0.0.5", "abc123")
	if outcome.Result != ResultConnectFailed {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if !errors.Is(outcome.Reason, wantErr) {
		t.Fatalf("unexpected reason: %v", outcome.Reason)
	}
	if len(provider.targets) != 0 {
		t.Fatalf("upload target set despite failed pairing")
	}
}

func TestSecondPairPreemptsFirst(t *testing.T) {
	hold := make(chan struct{})
	ch := &fakeChannel{hold: hold}
	c := New(ch, nil, nil)

	first := make(chan Outcome, 1)
	go func() {
		first <- c.Pair(context.Background(), "10.0.0.5", "abc123")
	}()

	// Wait for the first attempt to reach Connect.
	deadline := time.Now().Add(2 * time.Second)
	for {
		ch.mu.Lock()
		inFlight := len(ch.connects) == 1
		ch.mu.Unlock()
		if inFlight {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("first attempt never reached Connect")
		}
		time.Sleep(time.Millisecond)
	}

	ch.mu.Lock()
	ch.hold = nil
	ch.mu.Unlock()

	outcome := c.Pair(context.Background(), "10.0.0.6", "def456")
	if outcome.Result != ResultSuccess {
		t.Fatalf("second pair failed: %+v", outcome)
	}

	preempted := <-first
	if preempted.Result != ResultConnectFailed {
		t.Fatalf("expected first attempt preempted, got %+v", preempted)
	}
	ch.mu.Lock()
	disconnects := ch.disconnects
	ch.mu.Unlock()
	if disconnects == 0 {
		t.Fatalf("expected the in-flight attempt to be torn down")
	}
}
