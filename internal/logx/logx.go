package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/roomlink/schema"
)

type contextKey int

const hostKey contextKey = iota

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithHost annotates the logger with the console host if present.
func WithHost(ctx context.Context, host string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if host != "" {
		if current, ok := ctx.Value(hostKey).(string); ok && current == host {
			return log
		}
		log = log.With("host", host)
	}
	return log
}

// WithState annotates the logger with a connection state when available.
func WithState(log pslog.Logger, state schema.ConnState) pslog.Logger {
	if state != "" {
		log = log.With("state", string(state))
	}
	return log
}

// WithCapture annotates the logger with capture event metadata.
func WithCapture(log pslog.Logger, ev schema.CaptureEvent) pslog.Logger {
	if ev.Name != "" {
		log = log.With("event", ev.Name)
	}
	return log
}

// ContextWithHost stores the host marker on the context for log de-duplication.
func ContextWithHost(ctx context.Context, host string) context.Context {
	if ctx == nil || host == "" {
		return ctx
	}
	return context.WithValue(ctx, hostKey, host)
}

// ContextWithHostLogger attaches the logger and host marker to the context.
func ContextWithHostLogger(ctx context.Context, log pslog.Logger, host string) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithHost(ctx, host)
}
