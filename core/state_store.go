package core

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultStateTTL bounds how long an issued state token stays valid.
	DefaultStateTTL = 10 * time.Minute

	stateNonceBytes = 24
)

type signedStatePayload struct {
	Options  InstallURLOptions `json:"options"`
	IssuedAt int64             `json:"issued_at"`
	Nonce    string            `json:"nonce"`
}

// SignedStateStore issues stateless tokens of the form payload.sig where
// payload is base64url(JSON{options, issued_at, nonce}) and sig is an
// HMAC-SHA256 over the payload. Verification recomputes the signature and
// checks the TTL against the supplied clock, so no server-side storage is
// needed. Tokens are not consume-once; the TTL bounds the replay window.
type SignedStateStore struct {
	secret []byte
	ttl    time.Duration
}

func NewSignedStateStore(secret string, ttl time.Duration) (*SignedStateStore, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("core: signed state store requires a secret")
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &SignedStateStore{secret: []byte(secret), ttl: ttl}, nil
}

func (s *SignedStateStore) Generate(_ context.Context, options InstallURLOptions, issuedAt time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: state store is not configured")
	}
	nonce, err := generateStateNonce()
	if err != nil {
		return "", err
	}
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	payload := signedStatePayload{
		Options:  cloneInstallURLOptions(options),
		IssuedAt: issuedAt.UTC().Unix(),
		Nonce:    nonce,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("core: encode install state: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return encoded + "." + s.sign(encoded), nil
}

func (s *SignedStateStore) Verify(_ context.Context, now time.Time, state string) (InstallURLOptions, error) {
	if s == nil {
		return InstallURLOptions{}, fmt.Errorf("core: state store is not configured")
	}
	state = strings.TrimSpace(state)
	encoded, sig, ok := strings.Cut(state, ".")
	if !ok || encoded == "" || sig == "" {
		return InstallURLOptions{}, fmt.Errorf("core: malformed state token: %w", ErrStateInvalid)
	}
	if !hmac.Equal([]byte(s.sign(encoded)), []byte(sig)) {
		return InstallURLOptions{}, fmt.Errorf("core: state signature mismatch: %w", ErrStateInvalid)
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return InstallURLOptions{}, fmt.Errorf("core: decode state payload: %w", ErrStateInvalid)
	}
	var payload signedStatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return InstallURLOptions{}, fmt.Errorf("core: parse state payload: %w", ErrStateInvalid)
	}
	if now.IsZero() {
		now = time.Now()
	}
	issuedAt := time.Unix(payload.IssuedAt, 0)
	if now.Sub(issuedAt) > s.ttl {
		return InstallURLOptions{}, fmt.Errorf("core: state issued at %s: %w", issuedAt.UTC().Format(time.RFC3339), ErrStateExpired)
	}
	return cloneInstallURLOptions(payload.Options), nil
}

func (s *SignedStateStore) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

type memoryStateRecord struct {
	Options   InstallURLOptions
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// MemoryStateStore keeps issued states in process memory and consumes them on
// Verify. Suited to single-process deployments and tests.
type MemoryStateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryStateRecord
}

func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &MemoryStateStore{
		ttl:     ttl,
		entries: map[string]memoryStateRecord{},
	}
}

func (s *MemoryStateStore) Generate(_ context.Context, options InstallURLOptions, issuedAt time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: state store is not configured")
	}
	state, err := generateStateNonce()
	if err != nil {
		return "", err
	}
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	issuedAt = issuedAt.UTC()

	s.mu.Lock()
	for key, record := range s.entries {
		if issuedAt.After(record.ExpiresAt) {
			delete(s.entries, key)
		}
	}
	s.entries[state] = memoryStateRecord{
		Options:   cloneInstallURLOptions(options),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(s.ttl),
	}
	s.mu.Unlock()

	return state, nil
}

func (s *MemoryStateStore) Verify(_ context.Context, now time.Time, state string) (InstallURLOptions, error) {
	if s == nil {
		return InstallURLOptions{}, fmt.Errorf("core: state store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return InstallURLOptions{}, fmt.Errorf("core: state is required: %w", ErrStateInvalid)
	}
	if now.IsZero() {
		now = time.Now()
	}

	s.mu.Lock()
	record, ok := s.entries[state]
	if ok {
		delete(s.entries, state)
	}
	s.mu.Unlock()

	if !ok {
		return InstallURLOptions{}, fmt.Errorf("core: unknown state token: %w", ErrStateInvalid)
	}
	if now.UTC().After(record.ExpiresAt) {
		return InstallURLOptions{}, fmt.Errorf("core: state issued at %s: %w", record.IssuedAt.Format(time.RFC3339), ErrStateExpired)
	}
	return cloneInstallURLOptions(record.Options), nil
}

// GenerateStateToken mints an opaque random state value for centralized
// stores that persist options server side.
func GenerateStateToken() (string, error) {
	return generateStateNonce()
}

func generateStateNonce() (string, error) {
	raw := make([]byte, stateNonceBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate state nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
