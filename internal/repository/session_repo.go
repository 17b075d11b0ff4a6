package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tax-advisor/internal/domain"
)

// SessionRepository es el store de sesiones. El locking por sesión lo maneja el core;
// el store solo garantiza compare-and-set sobre Version.
type SessionRepository interface {
	Get(ctx context.Context, id string) (domain.Session, error)
	// Put guarda la sesión si la versión almacenada coincide con expectedVersion
	// (0 = no existe). Si no coincide devuelve domain.ErrConcurrentUpdate.
	Put(ctx context.Context, session domain.Session, expectedVersion int64) error
}

type pgExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgSessionRepository persiste sesiones en Postgres. Tabla esperada:
//
//	CREATE TABLE advisory_sessions (
//	    id             TEXT PRIMARY KEY,
//	    version        BIGINT NOT NULL,
//	    data           JSONB NOT NULL,
//	    created_at     TIMESTAMPTZ NOT NULL,
//	    last_active_at TIMESTAMPTZ NOT NULL
//	);
type PgSessionRepository struct {
	pool pgExecutor
}

// NewPgSessionRepository acepta un *pgxpool.Pool o cualquier ejecutor compatible.
func NewPgSessionRepository(pool pgExecutor) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

func (r *PgSessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	const query = `
		SELECT data
		FROM advisory_sessions
		WHERE id = $1
	`
	var raw []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (r *PgSessionRepository) Put(ctx context.Context, session domain.Session, expectedVersion int64) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	var tag pgconn.CommandTag
	if expectedVersion == 0 {
		const insert = `
			INSERT INTO advisory_sessions (id, version, data, created_at, last_active_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`
		tag, err = r.pool.Exec(ctx, insert,
			session.ID,
			session.Version,
			data,
			session.CreatedAt,
			session.LastActiveAt,
		)
	} else {
		const update = `
			UPDATE advisory_sessions
			SET version = $2, data = $3, last_active_at = $4
			WHERE id = $1 AND version = $5
		`
		tag, err = r.pool.Exec(ctx, update,
			session.ID,
			session.Version,
			data,
			session.LastActiveAt,
			expectedVersion,
		)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentUpdate
	}
	return nil
}
