package schema

import "errors"

var (
	// ErrEmptyToken indicates a missing or blank pairing token.
	ErrEmptyToken = errors.New("empty token")
	// ErrInvalidAddress indicates a malformed console address.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrHandshakeRejected indicates the console refused the credentials.
	ErrHandshakeRejected = errors.New("handshake rejected")
	// ErrChannelClosed indicates the channel was torn down by the caller.
	ErrChannelClosed = errors.New("channel closed")
	// ErrCapabilityUnavailable indicates the device lacks the scan capability.
	ErrCapabilityUnavailable = errors.New("scan capability unavailable")
	// ErrScanActive indicates a scan is already running.
	ErrScanActive = errors.New("scan already active")
	// ErrNoScan indicates no scan is running.
	ErrNoScan = errors.New("no scan active")
)
