package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL        = 24 * time.Hour
	maxUpdateAttempts = 3
)

// RedisStore keeps matches as JSON under match:<id> and uses WATCH for
// optimistic updates. match:index:player:<id>:active names the one active
// match a player holds.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func matchKey(id string) string { return "match:" + strings.TrimSpace(id) }
func playerKey(playerID string) string { return "match:index:player:" + strings.TrimSpace(playerID) }
func busyKey(playerID string) string { return playerKey(playerID) + ":active" }

const activeKey = "match:active"

func (s *RedisStore) Create(ctx context.Context, m *Match) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, matchKey(m.ID), raw, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("match %s exists: %w", m.ID, ErrInvalidArgs)
	}
	var held []string
	for _, p := range m.Players {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		if err := s.reserve(ctx, p.ID, m.ID); err != nil {
			for _, id := range held {
				s.release(ctx, id, m.ID)
			}
			_ = s.rdb.Del(ctx, matchKey(m.ID)).Err()
			return err
		}
		held = append(held, p.ID)
	}
	pipe := s.rdb.TxPipeline()
	for _, p := range m.Players {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		pipe.SAdd(ctx, playerKey(p.ID), m.ID)
		// index TTL follows the match TTL so stale indexes do not pile up
		pipe.Expire(ctx, playerKey(p.ID), s.ttl)
	}
	pipe.SAdd(ctx, activeKey, m.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Match, error) {
	raw, err := s.rdb.Get(ctx, matchKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeMatch(raw)
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Match) error) (*Match, error) {
	key := matchKey(id)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var out *Match
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return ErrMatchNotFound
			}
			if err != nil {
				return err
			}
			cur, err := decodeMatch(raw)
			if err != nil {
				return err
			}
			if err := fn(cur); err != nil {
				return err
			}
			cur.Version++
			next, err := json.Marshal(cur)
			if err != nil {
				return err
			}

			pipe := tx.TxPipeline()
			pipe.Set(ctx, key, next, s.ttl)
			for _, p := range cur.Players {
				if strings.TrimSpace(p.ID) == "" {
					continue
				}
				if cur.Status == StatusActive {
					pipe.Expire(ctx, busyKey(p.ID), s.ttl)
				} else if holder, _ := tx.Get(ctx, busyKey(p.ID)).Result(); holder == cur.ID {
					pipe.Del(ctx, busyKey(p.ID))
				}
			}
			if cur.Status != StatusActive {
				pipe.SRem(ctx, activeKey, cur.ID)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
			out = cur
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, ErrConcurrentUpdate
}

// reserve points playerID's busy key at matchID. A key left behind by a
// finished or expired match is taken over.
func (s *RedisStore) reserve(ctx context.Context, playerID, matchID string) error {
	key := busyKey(playerID)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			holder, err := tx.Get(ctx, key).Result()
			if err != nil && err != redis.Nil {
				return err
			}
			if holder != "" && holder != matchID {
				cur, err := s.Load(ctx, holder)
				if err != nil && !errors.Is(err, ErrMatchNotFound) {
					return err
				}
				if err == nil && cur.Status == StatusActive {
					return fmt.Errorf("%s in %s: %w", playerID, holder, ErrPlayerBusy)
				}
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, matchID, s.ttl)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConcurrentUpdate
}

func (s *RedisStore) release(ctx context.Context, playerID, matchID string) {
	key := busyKey(playerID)
	_ = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		if holder, _ := tx.Get(ctx, key).Result(); holder != matchID {
			return nil
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
}

func (s *RedisStore) MatchesByPlayer(ctx context.Context, playerID string) ([]*Match, error) {
	if strings.TrimSpace(playerID) == "" {
		return nil, nil
	}
	ids, err := s.rdb.SMembers(ctx, playerKey(playerID)).Result()
	if err != nil {
		return nil, err
	}
	var out []*Match
	for _, id := range ids {
		m, err := s.Load(ctx, id)
		if errors.Is(err, ErrMatchNotFound) {
			// expired match; drop the dangling index entry
			_ = s.rdb.SRem(ctx, playerKey(playerID), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *RedisStore) ActiveIDs(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, activeKey).Result()
}

// OpenRedis connects to a redis:// or rediss:// URL and pings it.
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("redis db %q: %w", p, err)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}, nil
}
