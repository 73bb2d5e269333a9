package auth

import (
	"context"
	"sync"
	"time"
)

// TokenBlacklist revokes JWTs before they expire. Single tokens are revoked
// by JTI on logout or refresh rotation; every token of a user is revoked at
// once when an admin deactivates the account or changes its role.
// Entries only need to outlive the tokens they reject, hence the TTLs.
type TokenBlacklist interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	// RevokeUserTokens rejects every token of userID issued up to now
	RevokeUserTokens(ctx context.Context, userID string, ttl time.Duration) error
	IsUserTokenRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// revokedBefore reports whether a token issued at issuedAt predates a
// revocation at revokedAt. JWT issue times have second precision, so a token
// minted within the revocation's second is rejected too.
func revokedBefore(issuedAt time.Time, revokedAt int64) bool {
	return issuedAt.UnixNano() <= revokedAt
}

type memoryEntry struct {
	value   int64
	expires time.Time
}

// InMemoryTokenBlacklist backs single-instance deployments without Redis.
// Revocations are lost on restart.
type InMemoryTokenBlacklist struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewInMemoryTokenBlacklist creates an empty blacklist
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{entries: make(map[string]memoryEntry)}
}

func (b *InMemoryTokenBlacklist) put(key string, value int64, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = memoryEntry{value: value, expires: time.Now().Add(ttl)}
}

// get drops the entry once it has expired
func (b *InMemoryTokenBlacklist) get(key string) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		return 0, false
	}
	if time.Now().After(e.expires) {
		delete(b.entries, key)
		return 0, false
	}
	return e.value, true
}

// RevokeToken implements TokenBlacklist
func (b *InMemoryTokenBlacklist) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	b.put(jtiKey(jti), 1, ttl)
	return nil
}

// IsTokenRevoked implements TokenBlacklist
func (b *InMemoryTokenBlacklist) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := b.get(jtiKey(jti))
	return ok, nil
}

// RevokeUserTokens implements TokenBlacklist
func (b *InMemoryTokenBlacklist) RevokeUserTokens(_ context.Context, userID string, ttl time.Duration) error {
	b.put(userKey(userID), time.Now().UnixNano(), ttl)
	return nil
}

// IsUserTokenRevoked implements TokenBlacklist
func (b *InMemoryTokenBlacklist) IsUserTokenRevoked(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	revokedAt, ok := b.get(userKey(userID))
	return ok && revokedBefore(issuedAt, revokedAt), nil
}

var _ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)
