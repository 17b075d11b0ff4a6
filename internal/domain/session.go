package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Session es el estado de asesoría asociado a un session id opaco.
// Bucket se asigna una sola vez; Unlocked y Acknowledged son monótonos.
type Session struct {
	ID                  string          `json:"id"`
	Bucket              *BucketDecision `json:"bucket,omitempty"`
	Profile             Profile         `json:"profile"`
	Unlocked            bool            `json:"unlocked"`
	Acknowledged        bool            `json:"acknowledged"`
	AcceptedDisclosures []string        `json:"accepted_disclosures,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	LastActiveAt        time.Time       `json:"last_active_at"`
	// Version se incrementa en cada persistencia y sirve de compare-and-set en los stores.
	Version int64 `json:"version"`
}

// SessionPatch describe una mutación. Apply valida todo antes de tocar la sesión.
type SessionPatch struct {
	Bucket              *BucketDecision
	Profile             *Profile
	Unlocked            *bool
	Acknowledged        *bool
	AcceptedDisclosures []string
}

// NewSession crea una sesión vacía sin bucket asignado.
func NewSession(id string, now time.Time) Session {
	return Session{
		ID:           id,
		Profile:      Profile{SchemaVersion: ProfileSchemaVersion},
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Apply aplica el parche de forma atómica: si alguna transición es ilegal no se modifica nada.
func (s *Session) Apply(patch SessionPatch) error {
	if patch.Bucket != nil && s.Bucket != nil && s.Bucket.Variant != patch.Bucket.Variant {
		return fmt.Errorf("%w: bucket already assigned as %s", ErrIllegalTransition, s.Bucket.Variant)
	}
	if patch.Unlocked != nil && !*patch.Unlocked && s.Unlocked {
		return fmt.Errorf("%w: unlocked cannot revert to false", ErrIllegalTransition)
	}
	if patch.Acknowledged != nil && !*patch.Acknowledged && s.Acknowledged {
		return fmt.Errorf("%w: acknowledged cannot revert to false", ErrIllegalTransition)
	}

	if patch.Bucket != nil && s.Bucket == nil {
		b := *patch.Bucket
		s.Bucket = &b
	}
	if patch.Profile != nil {
		s.Profile = s.Profile.Merge(*patch.Profile)
	}
	if patch.Unlocked != nil && *patch.Unlocked {
		s.Unlocked = true
	}
	if patch.Acknowledged != nil && *patch.Acknowledged {
		s.Acknowledged = true
	}
	if len(patch.AcceptedDisclosures) > 0 {
		s.AcceptedDisclosures = unionLower(s.AcceptedDisclosures, patch.AcceptedDisclosures)
	}
	return nil
}

// Unlock pasa unlocked a true. Es idempotente; devuelve si hubo cambio.
func (s *Session) Unlock() bool {
	if s.Unlocked {
		return false
	}
	s.Unlocked = true
	return true
}

// Acknowledge registra las disclosures aceptadas y marca la sesión si cubren todas las requeridas.
func (s *Session) Acknowledge(accepted, required []string) error {
	merged := unionLower(s.AcceptedDisclosures, accepted)
	if missing := missingItems(merged, required); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingDisclosures, strings.Join(missing, ","))
	}
	s.AcceptedDisclosures = merged
	s.Acknowledged = true
	return nil
}

// Touch actualiza la marca de actividad.
func (s *Session) Touch(now time.Time) {
	if now.After(s.LastActiveAt) {
		s.LastActiveAt = now
	}
}

// Clone devuelve una copia independiente de la sesión.
func (s Session) Clone() Session {
	out := s
	if s.Bucket != nil {
		b := *s.Bucket
		out.Bucket = &b
	}
	out.Profile = s.Profile.Clone()
	if s.AcceptedDisclosures != nil {
		out.AcceptedDisclosures = append([]string(nil), s.AcceptedDisclosures...)
	}
	return out
}

func unionLower(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, v := range append(append([]string(nil), base...), extra...) {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func missingItems(have, required []string) []string {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if _, ok := set[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}
