package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"tax-advisor/internal/domain"
)

func TestMemorySessionRepository_CompareAndSet(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	if _, err := repo.Get(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	s := domain.NewSession("s1", time.Now().UTC())
	s.Version = 1
	if err := repo.Put(ctx, s, 0); err != nil {
		t.Fatalf("expected first put to succeed, got %v", err)
	}
	if err := repo.Put(ctx, s, 0); !errors.Is(err, domain.ErrConcurrentUpdate) {
		t.Fatalf("expected stale put to conflict, got %v", err)
	}

	got, err := repo.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got.Profile.Jurisdictions = append(got.Profile.Jurisdictions, "CA")
	again, _ := repo.Get(ctx, "s1")
	if len(again.Profile.Jurisdictions) != 0 {
		t.Fatalf("repository must return copies")
	}
	if repo.Len() != 1 {
		t.Fatalf("expected one session, got %d", repo.Len())
	}
}

type mockRedisSessionClient struct {
	stored     string
	getErr     error
	evalResult int64
	evalErr    error
	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
}

func (m *mockRedisSessionClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.getErr != nil {
		cmd.SetErr(m.getErr)
		return cmd
	}
	cmd.SetVal(m.stored)
	return cmd
}

func (m *mockRedisSessionClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.evalErr != nil {
		cmd.SetErr(m.evalErr)
		return cmd
	}
	cmd.SetVal(m.evalResult)
	return cmd
}

func TestRedisSessionRepository(t *testing.T) {
	newRepo := func(c *mockRedisSessionClient) *RedisSessionRepository {
		return &RedisSessionRepository{client: c, ttl: 2 * time.Hour, prefix: "advisory:session:"}
	}

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(&mockRedisSessionClient{getErr: redis.Nil})
		if _, err := repo.Get(context.Background(), "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("get decodes", func(t *testing.T) {
		s := domain.NewSession("s1", time.Now().UTC())
		s.Unlocked = true
		s.Version = 3
		raw, _ := json.Marshal(s)
		repo := newRepo(&mockRedisSessionClient{stored: string(raw)})
		got, err := repo.Get(context.Background(), "s1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.Unlocked || got.Version != 3 {
			t.Fatalf("unexpected session %+v", got)
		}
	})

	t.Run("put sends version and ttl", func(t *testing.T) {
		mock := &mockRedisSessionClient{evalResult: 1}
		repo := newRepo(mock)
		s := domain.NewSession("s1", time.Now().UTC())
		s.Version = 2
		if err := repo.Put(context.Background(), s, 1); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "advisory:session:s1" {
			t.Fatalf("unexpected keys %+v", mock.lastKeys)
		}
		if len(mock.lastArgs) != 3 || mock.lastArgs[0] != int64(1) || mock.lastArgs[2] != int64(7200000) {
			t.Fatalf("unexpected args %+v", mock.lastArgs)
		}
		if !strings.Contains(mock.lastArgs[1].(string), `"version":2`) {
			t.Fatalf("expected encoded session with new version")
		}
		if mock.lastScript != redisSessionPutScript {
			t.Fatalf("expected CAS script")
		}
	})

	t.Run("put conflict", func(t *testing.T) {
		repo := newRepo(&mockRedisSessionClient{evalResult: 0})
		if err := repo.Put(context.Background(), domain.NewSession("s1", time.Now()), 0); !errors.Is(err, domain.ErrConcurrentUpdate) {
			t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
		}
	})

	t.Run("put redis error", func(t *testing.T) {
		repo := newRepo(&mockRedisSessionClient{evalErr: errors.New("redis down")})
		err := repo.Put(context.Background(), domain.NewSession("s1", time.Now()), 0)
		if err == nil || errors.Is(err, domain.ErrConcurrentUpdate) {
			t.Fatalf("expected raw redis error, got %v", err)
		}
	})
}

type fakeRow struct {
	data []byte
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.data
	return nil
}

type fakePgExecutor struct {
	row      fakeRow
	tag      string
	execErr  error
	lastSQL  string
	lastArgs []any
}

func (f *fakePgExecutor) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL = sql
	f.lastArgs = args
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag(f.tag), nil
}

func (f *fakePgExecutor) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL = sql
	f.lastArgs = args
	return f.row
}

func TestPgSessionRepository(t *testing.T) {
	t.Run("get missing", func(t *testing.T) {
		repo := NewPgSessionRepository(&fakePgExecutor{row: fakeRow{err: pgx.ErrNoRows}})
		if _, err := repo.Get(context.Background(), "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("get decodes", func(t *testing.T) {
		s := domain.NewSession("s1", time.Now().UTC())
		s.Acknowledged = true
		raw, _ := json.Marshal(s)
		repo := NewPgSessionRepository(&fakePgExecutor{row: fakeRow{data: raw}})
		got, err := repo.Get(context.Background(), "s1")
		if err != nil || !got.Acknowledged {
			t.Fatalf("unexpected result %+v err=%v", got, err)
		}
	})

	t.Run("insert on first version", func(t *testing.T) {
		exec := &fakePgExecutor{tag: "INSERT 0 1"}
		repo := NewPgSessionRepository(exec)
		s := domain.NewSession("s1", time.Now().UTC())
		s.Version = 1
		if err := repo.Put(context.Background(), s, 0); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(exec.lastSQL, "INSERT INTO advisory_sessions") {
			t.Fatalf("expected insert, got %q", exec.lastSQL)
		}
	})

	t.Run("update conflict", func(t *testing.T) {
		exec := &fakePgExecutor{tag: "UPDATE 0"}
		repo := NewPgSessionRepository(exec)
		s := domain.NewSession("s1", time.Now().UTC())
		s.Version = 4
		if err := repo.Put(context.Background(), s, 3); !errors.Is(err, domain.ErrConcurrentUpdate) {
			t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
		}
		if !strings.Contains(exec.lastSQL, "WHERE id = $1 AND version = $5") || exec.lastArgs[4] != int64(3) {
			t.Fatalf("expected versioned update, got %q %+v", exec.lastSQL, exec.lastArgs)
		}
	})
}
