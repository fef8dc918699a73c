// Package qrinput parses the payload delivered by an external QR decoder
// into pairing credentials. The decoder itself is a platform driver; this
// package only understands the payload formats the console emits.
package qrinput

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the URI scheme of a pairing payload.
const Scheme = "roomlink"

// ErrUnrecognizedPayload indicates the scanned text is neither a pairing
// URI nor a pairing JSON object.
var ErrUnrecognizedPayload = errors.New("unrecognized pairing payload")

// ScanResult is the outcome of one QR scan. An empty field means "not
// provided by this scan", not an error.
type ScanResult struct {
	Token string
	Host  string
}

// Scanner is a one-shot QR scan operation, backed by a platform decoder.
type Scanner interface {
	Scan(ctx context.Context) (ScanResult, error)
}

// ScannerFunc adapts a function to the Scanner interface.
type ScannerFunc func(ctx context.Context) (ScanResult, error)

// Scan implements Scanner.
func (f ScannerFunc) Scan(ctx context.Context) (ScanResult, error) {
	return f(ctx)
}

// Parse extracts credentials from a scanned payload. Two formats are
// accepted: the pairing URI `roomlink://pair?host=H&token=T` and a bare
// JSON object `{"host":"H","token":"T"}`. Either field may be absent.
func Parse(payload string) (ScanResult, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return ScanResult{}, ErrUnrecognizedPayload
	}
	if strings.HasPrefix(trimmed, Scheme+"://") {
		return parseURI(trimmed)
	}
	if strings.HasPrefix(trimmed, "{") {
		return parseJSON(trimmed)
	}
	return ScanResult{}, ErrUnrecognizedPayload
}

// Payload builds the pairing URI for the given credentials. Used by the
// qr command to mirror what the console displays.
func Payload(host, token string) string {
	values := url.Values{}
	if host != "" {
		values.Set("host", host)
	}
	if token != "" {
		values.Set("token", token)
	}
	return fmt.Sprintf("%s://pair?%s", Scheme, values.Encode())
}

func parseURI(payload string) (ScanResult, error) {
	u, err := url.Parse(payload)
	if err != nil {
		return ScanResult{}, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
	}
	values := u.Query()
	return ScanResult{
		Token: strings.TrimSpace(values.Get("token")),
		Host:  strings.TrimSpace(values.Get("host")),
	}, nil
}

func parseJSON(payload string) (ScanResult, error) {
	var decoded struct {
		Token string `json:"token"`
		Host  string `json:"host"`
	}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return ScanResult{}, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
	}
	return ScanResult{
		Token: strings.TrimSpace(decoded.Token),
		Host:  strings.TrimSpace(decoded.Host),
	}, nil
}
