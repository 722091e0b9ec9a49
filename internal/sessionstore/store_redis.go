package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/chessboard-client/internal/board"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// Record is the last known view of one client session.
type Record struct {
	SessionID string           `json:"session_id"`
	GameID    string           `json:"game_id"`
	Mode      board.PlayMode   `json:"mode"`
	State     *board.GameState `json:"state,omitempty"`
	Offset    int              `json:"offset"`
	UpdatedAt time.Time        `json:"updated_at"`
}

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

// Open dials REDIS_URL-style addresses and verifies the connection.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("REDIS_URL required for session store")
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
	return NewStore(rdb, ttl), nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *Store) keySession(id string) string { return "cb:session:" + strings.TrimSpace(id) }
func (s *Store) keyIndex() string            { return "cb:sessions" }

func (s *Store) SaveSession(ctx context.Context, rec *Record) error {
	if rec == nil || strings.TrimSpace(rec.SessionID) == "" {
		return errors.New("session id required")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.keySession(rec.SessionID), raw, s.ttl)
		p.SAdd(ctx, s.keyIndex(), rec.SessionID)
		p.Expire(ctx, s.keyIndex(), s.ttl)
		return nil
	})
	return err
}

// LoadSession returns nil, nil when nothing is stored for id.
func (s *Store) LoadSession(ctx context.Context, id string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, s.keySession(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &rec, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.keySession(id))
		p.SRem(ctx, s.keyIndex(), id)
		return nil
	})
	return err
}

// SessionIDs lists sessions whose record has not expired yet. Stale index
// entries are pruned on the way.
func (s *Store) SessionIDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.keyIndex()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := s.rdb.Exists(ctx, s.keySession(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			_ = s.rdb.SRem(ctx, s.keyIndex(), id).Err()
			continue
		}
		out = append(out, id)
	}
	return out, nil
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
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
