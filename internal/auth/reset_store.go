package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/staff-assignment/internal/domain"
)

// ErrResetTokenNotFound is returned for unknown, used or expired reset tokens.
var ErrResetTokenNotFound = errors.New("reset token not found")

// ResetTokenStore keeps pending password resets in Redis until they expire.
type ResetTokenStore struct {
	client redis.Cmdable
	prefix string
}

// NewResetTokenStore builds a store writing keys under prefix.
func NewResetTokenStore(client redis.Cmdable, prefix string) *ResetTokenStore {
	return &ResetTokenStore{client: client, prefix: prefix}
}

// Save stores reset until its ExpiresAt.
func (s *ResetTokenStore) Save(ctx context.Context, reset domain.PasswordReset) error {
	ttl := time.Until(reset.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("reset token already expired")
	}
	raw, err := json.Marshal(reset)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(reset.Token), raw, ttl).Err()
}

// Consume returns the pending reset and deletes it so a token works once.
func (s *ResetTokenStore) Consume(ctx context.Context, token string) (*domain.PasswordReset, error) {
	raw, err := s.client.GetDel(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResetTokenNotFound
		}
		return nil, err
	}
	var reset domain.PasswordReset
	if err := json.Unmarshal(raw, &reset); err != nil {
		return nil, fmt.Errorf("decode reset token: %w", err)
	}
	return &reset, nil
}

func (s *ResetTokenStore) key(token string) string {
	return s.prefix + ":password_reset:" + token
}
