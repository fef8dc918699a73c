// Package pairing orchestrates the handshake between operator input and
// an open control channel: validate, connect, then point the capability
// provider's upload target at the console.
package pairing

import (
	"context"
	"sync"

	"pkt.systems/pslog"

	"pkt.systems/roomlink/internal/capability"
	"pkt.systems/roomlink/schema"
)

// Field names an input that failed validation.
type Field string

const (
	// FieldAddress is the console IP address input.
	FieldAddress Field = "address"
	// FieldToken is the pairing token input.
	FieldToken Field = "token"
)

// Result discriminates pairing outcomes.
type Result string

const (
	// ResultSuccess means the channel is connected and configured.
	ResultSuccess Result = "success"
	// ResultInvalid means an input failed validation locally; nothing
	// reached the network.
	ResultInvalid Result = "invalid"
	// ResultConnectFailed means the connection attempt ended in failure.
	ResultConnectFailed Result = "connect_failed"
)

// Outcome is the typed result of one pairing attempt.
type Outcome struct {
	Result Result
	// Field is set for ResultInvalid.
	Field Field
	// Reason is set for ResultConnectFailed.
	Reason error
}

// Channel is the slice of the control channel API the coordinator needs.
type Channel interface {
	Connect(ctx context.Context, creds schema.Credentials) error
	Disconnect()
}

// Coordinator serializes pairing attempts against one control channel.
// A second Pair call preempts an in-flight first one by tearing it down.
type Coordinator struct {
	ch       Channel
	provider capability.Provider
	log      pslog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	attempt uint64
}

// New constructs a Coordinator. The provider may be nil; upload-target
// configuration is then skipped.
func New(ch Channel, provider capability.Provider, logger pslog.Logger) *Coordinator {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Coordinator{ch: ch, provider: provider, log: logger}
}

// Pair validates the operator's input, opens the control channel, and on
// success forwards the console address to the capability provider's
// upload-target configuration. Inputs must be trimmed by the caller; the
// validated strings are used verbatim. Upload-target configuration is
// best-effort and cannot fail pairing.
func (c *Coordinator) Pair(ctx context.Context, host, token string) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.cancel != nil {
		// Preempt the in-flight attempt; never run two against the
		// same channel.
		c.cancel()
		c.ch.Disconnect()
	}
	attemptCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.attempt++
	id := c.attempt
	c.mu.Unlock()
	defer func() {
		cancel()
		c.mu.Lock()
		if c.attempt == id {
			c.cancel = nil
		}
		c.mu.Unlock()
	}()

	if !schema.ValidateToken(token) {
		return Outcome{Result: ResultInvalid, Field: FieldToken}
	}
	if host == "" || !schema.ValidateAddress(host) {
		return Outcome{Result: ResultInvalid, Field: FieldAddress}
	}

	log := c.log.With("host", host)
	log.Info("pairing with console")
	if err := c.ch.Connect(attemptCtx, schema.Credentials{Token: token, Host: host}); err != nil {
		log.Warn("pairing failed", "err", err)
		return Outcome{Result: ResultConnectFailed, Reason: err}
	}

	if c.provider != nil {
		c.provider.SetUploadTarget(host)
	}
	log.Info("paired")
	return Outcome{Result: ResultSuccess}
}
