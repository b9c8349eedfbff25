package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SessionStore keeps a bounded, expiring conversation per user. Append
// drops the oldest messages beyond the history limit and refreshes the TTL.
type SessionStore interface {
	History(ctx context.Context, userID string) ([]Message, error)
	Append(ctx context.Context, userID string, msgs ...Message) error
	Clear(ctx context.Context, userID string) error
}

// MemorySessions keeps sessions in process memory.
type MemorySessions struct {
	mu         sync.Mutex
	cache      *gocache.Cache
	ttl        time.Duration
	maxHistory int
}

func NewMemorySessions(ttl time.Duration, maxHistory int) *MemorySessions {
	return &MemorySessions{
		cache:      gocache.New(ttl, ttl/2+time.Minute),
		ttl:        ttl,
		maxHistory: maxHistory,
	}
}

func (s *MemorySessions) History(_ context.Context, userID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.load(userID)...), nil
}

func (s *MemorySessions) Append(_ context.Context, userID string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.load(userID), msgs...)
	if len(history) > s.maxHistory {
		history = append([]Message(nil), history[len(history)-s.maxHistory:]...)
	}
	s.cache.Set(userID, history, s.ttl)
	return nil
}

func (s *MemorySessions) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(userID)
	return nil
}

func (s *MemorySessions) load(userID string) []Message {
	if v, ok := s.cache.Get(userID); ok {
		return v.([]Message)
	}
	return nil
}

const redisKeyPrefix = "healthlens:chat:"

// RedisSessions stores each conversation as a Redis list of JSON messages.
type RedisSessions struct {
	client     *redis.Client
	ttl        time.Duration
	maxHistory int
}

func NewRedisSessions(client *redis.Client, ttl time.Duration, maxHistory int) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl, maxHistory: maxHistory}
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisSessions) History(ctx context.Context, userID string) ([]Message, error) {
	raw, err := s.client.LRange(ctx, redisKeyPrefix+userID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	history := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode session message: %w", err)
		}
		history = append(history, msg)
	}
	return history, nil
}

func (s *RedisSessions) Append(ctx context.Context, userID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode session message: %w", err)
		}
		values = append(values, b)
	}

	key := redisKeyPrefix + userID
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-s.maxHistory), -1)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append session: %w", err)
	}
	return nil
}

// Ping lets readiness probes check the Redis connection.
func (s *RedisSessions) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSessions) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
