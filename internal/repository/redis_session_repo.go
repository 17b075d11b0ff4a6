package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tax-advisor/internal/domain"
)

// redisSessionPutScript hace compare-and-set sobre el campo version del JSON guardado.
const redisSessionPutScript = `
local current = redis.call("GET", KEYS[1])
local version = 0
if current then
  local decoded = cjson.decode(current)
  version = tonumber(decoded["version"]) or 0
end
if version ~= tonumber(ARGV[1]) then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

type redisSessionClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisSessionRepository guarda sesiones como JSON con TTL; el TTL es la política de expiración.
type RedisSessionRepository struct {
	client redisSessionClient
	ttl    time.Duration
	prefix string
}

func NewRedisSessionRepository(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisSessionRepository{
		client: client,
		ttl:    ttl,
		prefix: "advisory:session:",
	}
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	raw, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func (r *RedisSessionRepository) Put(ctx context.Context, session domain.Session, expectedVersion int64) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := r.client.Eval(ctx, redisSessionPutScript, []string{r.prefix + session.ID},
		expectedVersion, string(data), r.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if ok != 1 {
		return domain.ErrConcurrentUpdate
	}
	return nil
}
