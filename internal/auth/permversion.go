package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const permVersionKeyPrefix = "crm:permver:"

// PermVersionStore tracks the latest permission version per user. The
// auth service bumps the version when grants change; tokens minted
// before the bump are rejected until re-issued.
type PermVersionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPermVersionStore creates a store over the shared redis client.
// A nil client disables the staleness gate.
func NewPermVersionStore(rdb *redis.Client, ttl time.Duration) *PermVersionStore {
	return &PermVersionStore{rdb: rdb, ttl: ttl}
}

// Current returns the authoritative permission version for a user.
// Missing keys (expired or never bumped) return 0, which always passes.
func (s *PermVersionStore) Current(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s == nil || s.rdb == nil {
		return 0, nil
	}
	val, err := s.rdb.Get(ctx, permVersionKeyPrefix+userID.String()).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read permission version: %w", err)
	}
	version, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse permission version: %w", err)
	}
	return version, nil
}

// Bump records a new permission version with the configured TTL
func (s *PermVersionStore) Bump(ctx context.Context, userID uuid.UUID, version int64) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Set(ctx, permVersionKeyPrefix+userID.String(), strconv.FormatInt(version, 10), s.ttl).Err()
}

// IsStale compares a token's version against the stored one. Tokens
// carrying version 0 predate versioning and pass; store read failures
// fail open so redis outages do not lock every tenant out.
func (s *PermVersionStore) IsStale(ctx context.Context, userID uuid.UUID, tokenVersion int64) bool {
	if tokenVersion == 0 {
		return false
	}
	current, err := s.Current(ctx, userID)
	if err != nil || current == 0 {
		return false
	}
	return tokenVersion < current
}
