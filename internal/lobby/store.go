package lobby

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/cheese-arena/internal/match"
)

const (
	defaultTTL      = 24 * time.Hour
	maxJoinAttempts = 3
)

// Store keeps lobbies in Redis. Every key expires with the lobby TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func keyLobby(code string) string { return "lobby:" + strings.TrimSpace(code) }
func keyParticipants(code string) string { return keyLobby(code) + ":participants" }
func keyCreator(playerID string) string { return "lobby:index:creator:" + strings.TrimSpace(playerID) }

const keyOpen = "lobby:open"

// Reserve claims code for l and registers the creator. It reports false when the
// code is taken.
func (s *Store) Reserve(ctx context.Context, l *Lobby) (bool, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return false, err
	}
	ok, err := s.rdb.SetNX(ctx, keyLobby(l.Code), raw, s.ttl).Result()
	if err != nil || !ok {
		return false, err
	}
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, keyParticipants(l.Code), l.CreatorID)
	pipe.Expire(ctx, keyParticipants(l.Code), s.ttl)
	pipe.Set(ctx, keyCreator(l.CreatorID), l.Code, s.ttl)
	pipe.SAdd(ctx, keyOpen, l.Code)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Save(ctx context.Context, l *Lobby) error {
	raw, err := json.Marshal(l)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, keyLobby(l.Code), raw, s.ttl)
	if l.State != StateOpen {
		pipe.SRem(ctx, keyOpen, l.Code)
		pipe.Del(ctx, keyCreator(l.CreatorID))
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Load returns nil, nil for an unknown or expired code.
func (s *Store) Load(ctx context.Context, code string) (*Lobby, error) {
	raw, err := s.rdb.Get(ctx, keyLobby(code)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var l Lobby
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// OpenCodeOf returns the open lobby a player created, if any.
func (s *Store) OpenCodeOf(ctx context.Context, playerID string) (string, error) {
	code, err := s.rdb.Get(ctx, keyCreator(playerID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return code, err
}

func (s *Store) Participants(ctx context.Context, code string) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, keyParticipants(code)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// AddParticipant adds playerID under WATCH so two concurrent joins cannot both
// take the second seat. It returns the participant count afterwards.
func (s *Store) AddParticipant(ctx context.Context, code, playerID string) (int64, error) {
	key := keyParticipants(code)
	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		var count int64
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			members, err := tx.SMembers(ctx, key).Result()
			if err != nil && err != redis.Nil {
				return err
			}
			for _, m := range members {
				if m == playerID {
					count = int64(len(members))
					return nil
				}
			}
			if len(members) >= 2 {
				return ErrFull
			}
			pipe := tx.TxPipeline()
			pipe.SAdd(ctx, key, playerID)
			pipe.Expire(ctx, key, s.ttl)
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
			count = int64(len(members)) + 1
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return count, err
	}
	return 0, fmt.Errorf("join %s: %w", code, match.ErrConcurrentUpdate)
}

func (s *Store) RemoveParticipant(ctx context.Context, code, playerID string) error {
	return s.rdb.SRem(ctx, keyParticipants(code), playerID).Err()
}

// ListOpen returns open lobbies, oldest first. Expired codes are pruned.
func (s *Store) ListOpen(ctx context.Context) ([]*Lobby, error) {
	codes, err := s.rdb.SMembers(ctx, keyOpen).Result()
	if err != nil {
		return nil, err
	}
	var out []*Lobby
	for _, c := range codes {
		l, err := s.Load(ctx, c)
		if err != nil {
			return nil, err
		}
		if l == nil {
			_ = s.rdb.SRem(ctx, keyOpen, c).Err()
			continue
		}
		if l.State != StateOpen {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// newCode returns `LB-` + 6 upper alnum.
func newCode() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return fmt.Sprintf("LB-%s", string(b)), nil
}
