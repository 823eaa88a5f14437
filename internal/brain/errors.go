package brain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a generation failure.
type Kind string

const (
	KindTransport        Kind = "transport"
	KindAuth             Kind = "auth"
	KindRateLimit        Kind = "rate_limit"
	KindModelUnavailable Kind = "model_unavailable"
	KindEmpty            Kind = "empty"
	KindExhausted        Kind = "exhausted"
	KindNotConfigured    Kind = "not_configured"
)

// GenerationError is returned for every failed generation. Attempts is set
// only on exhausted errors.
type GenerationError struct {
	Kind     Kind
	Backend  string
	Model    string
	Status   int
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "generation %s", e.Kind)
	if e.Backend != "" {
		fmt.Fprintf(&b, " (%s", e.Backend)
		if e.Model != "" {
			fmt.Fprintf(&b, "/%s", e.Model)
		}
		b.WriteString(")")
	}
	if e.Attempts > 0 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsKind reports whether err is a GenerationError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ge *GenerationError
	return errors.As(err, &ge) && ge.Kind == kind
}

// kindForStatus maps an HTTP status from any backend to a Kind.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusNotFound:
		return KindModelUnavailable
	default:
		return KindTransport
	}
}

// kindForMessage classifies SDK errors that only expose text.
func kindForMessage(msg string) Kind {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "api key") || strings.Contains(m, "permission") ||
		strings.Contains(m, "unauthorized") || strings.Contains(m, "401") || strings.Contains(m, "403"):
		return KindAuth
	case strings.Contains(m, "429") || strings.Contains(m, "quota") ||
		strings.Contains(m, "resource_exhausted") || strings.Contains(m, "rate limit"):
		return KindRateLimit
	case strings.Contains(m, "404") || strings.Contains(m, "not found") ||
		strings.Contains(m, "not supported") || strings.Contains(m, "does not exist"):
		return KindModelUnavailable
	default:
		return KindTransport
	}
}

// wrap converts a backend failure into a GenerationError, keeping an
// existing classification and passing context errors through as transport.
func wrap(backend, model string, err error) error {
	if err == nil {
		return nil
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		if ge.Backend == "" {
			ge.Backend = backend
		}
		if ge.Model == "" {
			ge.Model = model
		}
		return ge
	}
	kind := KindTransport
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		kind = kindForMessage(err.Error())
	}
	return &GenerationError{Kind: kind, Backend: backend, Model: model, Err: err}
}
