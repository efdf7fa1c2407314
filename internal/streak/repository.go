package streak

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Repository loads and saves streak state per learner. Load returns the zero
// State for a learner with no recorded activity.
type Repository interface {
	Load(ctx context.Context, learnerID string) (State, error)
	Save(ctx context.Context, learnerID string, s State) error
}

// MemoryRepository keeps streaks in memory.
type MemoryRepository struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{states: make(map[string]State)}
}

func (r *MemoryRepository) Load(_ context.Context, learnerID string) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[learnerID], nil
}

func (r *MemoryRepository) Save(_ context.Context, learnerID string, s State) error {
	r.mu.Lock()
	r.states[learnerID] = s
	r.mu.Unlock()
	return nil
}

const redisKeyPrefix = "streak:"

// DefaultRedisTTL expires a learner's current streak after this long
// without activity.
const DefaultRedisTTL = 30 * 24 * time.Hour

// RedisRepository stores each learner's current streak as a JSON value under
// streak:{learner}, which expires after ttl without activity. The longest
// streak is kept under streak:{learner}:longest with no expiry, so it
// outlives an expired current streak.
type RedisRepository struct {
	client redis.Cmdable
	ttl    time.Duration
}

// RedisOption configures a RedisRepository.
type RedisOption func(*RedisRepository)

// WithTTL sets the expiry of the current streak. Zero or less disables it.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisRepository) { r.ttl = max(ttl, 0) }
}

func NewRedisRepository(client redis.Cmdable, opts ...RedisOption) *RedisRepository {
	r := &RedisRepository{client: client, ttl: DefaultRedisTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func stateKey(learnerID string) string   { return redisKeyPrefix + learnerID }
func longestKey(learnerID string) string { return redisKeyPrefix + learnerID + ":longest" }

func (r *RedisRepository) Load(ctx context.Context, learnerID string) (State, error) {
	vals, err := r.client.MGet(ctx, stateKey(learnerID), longestKey(learnerID)).Result()
	if err != nil {
		return State{}, fmt.Errorf("get streak: %w", err)
	}

	var s State
	if raw, ok := vals[0].(string); ok {
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return State{}, fmt.Errorf("decode streak: %w", err)
		}
	}
	if raw, ok := vals[1].(string); ok {
		longest, err := strconv.Atoi(raw)
		if err != nil {
			return State{}, fmt.Errorf("decode longest streak: %w", err)
		}
		s.LongestDays = max(s.LongestDays, longest)
	}
	return s, nil
}

func (r *RedisRepository) Save(ctx context.Context, learnerID string, s State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode streak: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, stateKey(learnerID), raw, r.ttl)
		pipe.Set(ctx, longestKey(learnerID), s.LongestDays, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set streak: %w", err)
	}
	return nil
}
