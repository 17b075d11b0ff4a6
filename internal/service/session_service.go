package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"tax-advisor/internal/domain"
	"tax-advisor/internal/repository"
)

const maxSessionIDLength = 128

var ErrSessionServiceNotConfigured = errors.New("session service not configured")

// SessionService serializa los ciclos leer-modificar-persistir por session id.
// La exclusión mutua es del core, no del store.
type SessionService struct {
	repo           repository.SessionRepository
	locks          *keyedLocks
	logger         *zap.Logger
	now            func() time.Time
	persistTimeout time.Duration
}

func NewSessionService(repo repository.SessionRepository, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		repo:           repo,
		locks:          newKeyedLocks(),
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
		persistTimeout: 2 * time.Second,
	}
}

// NormalizeSessionID valida el id opaco del caller.
func NormalizeSessionID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: session_id is required", domain.ErrInvalidInput)
	}
	if len(id) > maxSessionIDLength {
		return "", fmt.Errorf("%w: session_id too long", domain.ErrInvalidInput)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", fmt.Errorf("%w: session_id contains invalid characters", domain.ErrInvalidInput)
		}
	}
	return id, nil
}

// Load devuelve la sesión guardada o una nueva (sin persistir) si es la primera referencia.
func (s *SessionService) Load(ctx context.Context, id string) (domain.Session, error) {
	if s == nil || s.repo == nil {
		return domain.Session{}, ErrSessionServiceNotConfigured
	}
	id, err := NormalizeSessionID(id)
	if err != nil {
		return domain.Session{}, err
	}
	return s.load(ctx, id)
}

func (s *SessionService) load(ctx context.Context, id string) (domain.Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewSession(id, s.now()), nil
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// WithSession ejecuta fn bajo el lock de la sesión y persiste una sola vez al final.
// Si fn falla o el ctx se cancela antes de persistir, no se guarda nada.
func (s *SessionService) WithSession(ctx context.Context, id string, fn func(*domain.Session) error) (domain.Session, error) {
	if s == nil || s.repo == nil {
		return domain.Session{}, ErrSessionServiceNotConfigured
	}
	id, err := NormalizeSessionID(id)
	if err != nil {
		return domain.Session{}, err
	}

	release, err := s.locks.acquire(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	defer release()

	current, err := s.load(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}

	work := current.Clone()
	if err := fn(&work); err != nil {
		return domain.Session{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	work.Touch(s.now())
	work.Version = current.Version + 1

	// Una vez decidido el commit, no se corta a mitad por cancelación del caller.
	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()
	if err := s.repo.Put(putCtx, work, current.Version); err != nil {
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			s.logger.Error("session version conflict",
				zap.String("session_id", id),
				zap.Int64("expected_version", current.Version),
			)
			return domain.Session{}, err
		}
		return domain.Session{}, fmt.Errorf("put session: %w", err)
	}
	return work, nil
}

// Update mergea campos de perfil y aplica el resto del parche.
func (s *SessionService) Update(ctx context.Context, id string, patch domain.SessionPatch) (domain.Session, error) {
	return s.WithSession(ctx, id, func(sess *domain.Session) error {
		return sess.Apply(patch)
	})
}

// Unlock es idempotente: repetirlo no es error.
func (s *SessionService) Unlock(ctx context.Context, id string) (domain.Session, error) {
	return s.WithSession(ctx, id, func(sess *domain.Session) error {
		if sess.Unlock() {
			RecordUnlock()
			s.logger.Info("session unlocked", zap.String("session_id", sess.ID))
		}
		return nil
	})
}

// Acknowledge registra las disclosures aceptadas; falla si faltan requeridas.
func (s *SessionService) Acknowledge(ctx context.Context, id string, accepted, required []string) (domain.Session, error) {
	return s.WithSession(ctx, id, func(sess *domain.Session) error {
		return sess.Acknowledge(accepted, required)
	})
}

// keyedLocks mantiene un semáforo de peso 1 por clave, liberado cuando nadie lo usa.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: make(map[string]*lockEntry)}
}

func (k *keyedLocks) acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		k.drop(key, e)
		return nil, err
	}
	return func() {
		e.sem.Release(1)
		k.drop(key, e)
	}, nil
}

func (k *keyedLocks) drop(key string, e *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

func (k *keyedLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
