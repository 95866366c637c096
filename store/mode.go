package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// FallbackPolicy decides when reads are served by the fallback repository.
type FallbackPolicy int

const (
	// FallbackOnMissingCredentials degrades only when the credential source
	// reports no usable credentials. Transport errors are returned.
	FallbackOnMissingCredentials FallbackPolicy = iota

	// FallbackNever always uses the live store; missing credentials surface
	// as a TransportError.
	FallbackNever

	// FallbackOnAnyTransportError also degrades when a live read fails with
	// a transport error. The swallowed error is reported in Result.Errors.
	FallbackOnAnyTransportError
)

func (p FallbackPolicy) String() string {
	switch p {
	case FallbackNever:
		return "never"
	case FallbackOnMissingCredentials:
		return "missing-credentials"
	case FallbackOnAnyTransportError:
		return "any-transport-error"
	default:
		return fmt.Sprintf("FallbackPolicy(%d)", int(p))
	}
}

func (p FallbackPolicy) valid() bool {
	return p >= FallbackOnMissingCredentials && p <= FallbackOnAnyTransportError
}

// ParseFallbackPolicy parses the String form of a policy.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "never":
		return FallbackNever, nil
	case "", "missing-credentials":
		return FallbackOnMissingCredentials, nil
	case "any-transport-error":
		return FallbackOnAnyTransportError, nil
	default:
		return 0, fmt.Errorf("syllabus: unknown fallback policy %q", s)
	}
}

// Mode is the store's operating state.
type Mode int

const (
	// Normal serves calls from the live store.
	Normal Mode = iota
	// Degraded serves calls from the fallback repository until
	// CredentialsRefreshed is called.
	Degraded
)

func (m Mode) String() string {
	if m == Degraded {
		return "degraded"
	}
	return "normal"
}

// CredentialSource reports whether the live store can be reached with valid
// credentials. Check returns nil when credentials are usable.
type CredentialSource interface {
	Check(ctx context.Context) error
}

// CredentialsFunc adapts a function to CredentialSource.
type CredentialsFunc func(ctx context.Context) error

// Check calls f.
func (f CredentialsFunc) Check(ctx context.Context) error { return f(ctx) }

// StaticCredentials reports credentials as always present or always absent.
func StaticCredentials(present bool) CredentialSource {
	return CredentialsFunc(func(context.Context) error {
		if present {
			return nil
		}
		return ErrMissingCredentials
	})
}

// Reasons recorded on mode transitions.
const (
	reasonCredentials = "credentials"
	reasonTransport   = "transport"
	reasonRefreshed   = "refreshed"
)

// modeState is the Normal/Degraded state machine. Leaving Degraded only
// happens through refresh; nothing times out.
type modeState struct {
	mu     sync.RWMutex
	mode   Mode
	reason string
	cause  error
}

func (m *modeState) get() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// degrade moves to Degraded and reports whether this call changed the mode.
func (m *modeState) degrade(reason string, cause error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == Degraded {
		return false
	}
	m.mode = Degraded
	m.reason = reason
	m.cause = cause
	return true
}

// refresh moves to Normal and reports whether this call changed the mode.
func (m *modeState) refresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == Normal {
		return false
	}
	m.mode = Normal
	m.reason = ""
	m.cause = nil
	return true
}

func (m *modeState) describe() (Mode, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode, m.reason, m.cause
}

// Mode returns the current operating state.
func (s *Store) Mode() Mode {
	return s.mode.get()
}

// DegradedReason returns why the store degraded, or "" in Normal mode.
func (s *Store) DegradedReason() (string, error) {
	_, reason, cause := s.mode.describe()
	return reason, cause
}

// CredentialsRefreshed signals that the credential context changed. The
// store returns to Normal; the next call re-checks credentials.
func (s *Store) CredentialsRefreshed() {
	if s.mode.refresh() {
		s.logger.Info("store mode changed",
			zap.Stringer("mode", Normal),
			zap.String("reason", reasonRefreshed),
		)
		s.metrics.transition(Normal, reasonRefreshed)
	}
}

func (s *Store) degrade(reason string, cause error) {
	if s.mode.degrade(reason, cause) {
		s.logger.Warn("store mode changed",
			zap.Stringer("mode", Degraded),
			zap.String("reason", reason),
			zap.Error(cause),
		)
		s.metrics.transition(Degraded, reason)
	}
}

// checkCredentials returns nil when the live adapter is usable.
func (s *Store) checkCredentials(ctx context.Context) error {
	if s.live == nil {
		return fmt.Errorf("%w: no live adapter configured", ErrMissingCredentials)
	}
	if s.creds == nil {
		return nil
	}
	err := s.creds.Check(ctx)
	if err != nil && !errors.Is(err, ErrMissingCredentials) {
		err = fmt.Errorf("%w: %v", ErrMissingCredentials, err)
	}
	return err
}

// pick chooses the adapter for one call.
func (s *Store) pick(ctx context.Context, op, entity string, policy FallbackPolicy) (Adapter, bool, error) {
	if policy == FallbackNever || s.fallback == nil {
		if err := s.checkCredentials(ctx); err != nil {
			return nil, false, &TransportError{Op: op, Entity: entity, Err: err}
		}
		return s.live, false, nil
	}
	if s.mode.get() == Degraded {
		return s.fallback, true, nil
	}
	if err := s.checkCredentials(ctx); err != nil {
		s.degrade(reasonCredentials, err)
		return s.fallback, true, nil
	}
	return s.live, false, nil
}
