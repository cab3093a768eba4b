package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jobtrack/jobtrack/application/port/outbound"
)

const refreshTokenKeyPrefix = "refreshToken:"

// RefreshTokenRegistry tracks the single live refresh token per principal.
// The invariant is one record per email key: Save unconditionally
// overwrites whatever was stored, which is also the rotation primitive.
// Every call goes straight to the key-value store; there is no in-process
// cache, so a revoked token can never appear valid from stale state.
type RefreshTokenRegistry struct {
	store      outbound.KeyValueStore
	refreshTTL time.Duration
}

func NewRefreshTokenRegistry(store outbound.KeyValueStore, refreshTTL time.Duration) *RefreshTokenRegistry {
	return &RefreshTokenRegistry{
		store:      store,
		refreshTTL: refreshTTL,
	}
}

// Save stores tokenString as the only live refresh token for email,
// replacing any prior record and resetting the TTL to the full refresh
// lifetime.
func (r *RefreshTokenRegistry) Save(ctx context.Context, email, tokenString string) error {
	return r.store.Set(ctx, refreshTokenKey(email), tokenString, r.refreshTTL)
}

// Get returns the stored token for email, or outbound.ErrKeyNotFound if
// no record exists (never stored, deleted, or aged out by TTL).
func (r *RefreshTokenRegistry) Get(ctx context.Context, email string) (string, error) {
	return r.store.Get(ctx, refreshTokenKey(email))
}

// Delete removes the record for email. Deleting an absent record is fine.
func (r *RefreshTokenRegistry) Delete(ctx context.Context, email string) error {
	err := r.store.Delete(ctx, refreshTokenKey(email))
	if errors.Is(err, outbound.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (r *RefreshTokenRegistry) Exists(ctx context.Context, email string) (bool, error) {
	return r.store.Exists(ctx, refreshTokenKey(email))
}

func refreshTokenKey(email string) string {
	return refreshTokenKeyPrefix + email
}
