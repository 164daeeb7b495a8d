package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-assignment/internal/domain"
)

// RosterCache keeps candidate rosters (staff plus availability, without
// workload) keyed by role and branch. Invalidate bumps a generation counter,
// so stale entries are never read and expire on their own.
type RosterCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRosterCache builds a cache. A nil client or non-positive ttl disables it.
func NewRosterCache(client redis.Cmdable, prefix string, ttl time.Duration, logger *zap.Logger) *RosterCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Enabled reports whether reads and writes reach Redis.
func (c *RosterCache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Slot is where a roster loaded after a miss belongs. It pins the generation
// Get read, so a write racing an Invalidate lands in a generation no reader
// uses any more.
type Slot struct {
	key string
}

// Get returns a cached roster, or on a miss the Slot to fill with Set.
// Any Redis or decode failure is a miss.
func (c *RosterCache) Get(ctx context.Context, role domain.StaffRole, branchID string) ([]domain.StaffMember, Slot, bool) {
	if !c.Enabled() {
		return nil, Slot{}, false
	}
	key, err := c.key(ctx, role, branchID)
	if err != nil {
		c.logger.Debug("roster cache generation unavailable", zap.Error(err))
		return nil, Slot{}, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("roster cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, Slot{key: key}, false
	}
	var roster []domain.StaffMember
	if err := json.Unmarshal(raw, &roster); err != nil {
		c.logger.Warn("roster cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, Slot{key: key}, false
	}
	return roster, Slot{key: key}, true
}

// Set stores roster in slot. An empty slot is ignored.
func (c *RosterCache) Set(ctx context.Context, slot Slot, roster []domain.StaffMember) {
	if !c.Enabled() || slot.key == "" {
		return
	}
	raw, err := json.Marshal(roster)
	if err != nil {
		c.logger.Warn("roster cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, slot.key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("roster cache write failed", zap.String("key", slot.key), zap.Error(err))
	}
}

// Invalidate drops every cached roster.
func (c *RosterCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		c.logger.Warn("roster cache invalidation failed", zap.Error(err))
	}
}

func (c *RosterCache) key(ctx context.Context, role domain.StaffRole, branchID string) (string, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return rosterKey(c.prefix, gen, role, branchID), nil
}

func (c *RosterCache) generationKey() string {
	return c.prefix + ":roster:gen"
}

func rosterKey(prefix string, gen int64, role domain.StaffRole, branchID string) string {
	if branchID == "" {
		branchID = "*"
	}
	return fmt.Sprintf("%s:roster:%d:%s:%s", prefix, gen, role, branchID)
}
