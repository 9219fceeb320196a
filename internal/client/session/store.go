// Package session keeps the CLI's authenticated session. Remember-me
// sessions go to the persistent ("local") store with a 30 day expiry; other
// sessions go to the ephemeral ("session") store, which lives only as long
// as the process.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streetcredrx/credauth/internal/client/models"
	"github.com/streetcredrx/credauth/internal/client/repositories/metadata"
	"github.com/streetcredrx/credauth/internal/common"
)

const (
	KeyToken             = "auth_token"
	KeyUser              = "auth_user"
	KeyRememberMe        = "auth_remember_me"
	KeyRememberMeExpires = "auth_remember_me_expires"
)

// expiresLayout matches what the web client stores.
const expiresLayout = "2006-01-02T15:04:05.000Z07:00"

type Kind string

const (
	KindLocal   Kind = "local"
	KindSession Kind = "session"
)

// Session is the active login. User is nil when the stored user could not be
// decoded.
type Session struct {
	Token      string
	User       *models.User
	Kind       Kind
	RememberMe bool
}

type Store struct {
	local     metadata.Repository
	ephemeral metadata.Repository
	now       func() time.Time
}

func NewStore(local, ephemeral metadata.Repository) *Store {
	return &Store{local: local, ephemeral: ephemeral, now: time.Now}
}

func (s *Store) repo(k Kind) metadata.Repository {
	if k == KindLocal {
		return s.local
	}
	return s.ephemeral
}

// Save stores the session in one store and removes it from the other.
func (s *Store) Save(ctx context.Context, token string, user models.User, rememberMe bool) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	kind := KindSession
	if rememberMe {
		kind = KindLocal
	}
	target := s.repo(kind)

	if err := target.Set(ctx, KeyToken, []byte(token)); err != nil {
		return err
	}
	if err := target.Set(ctx, KeyUser, raw); err != nil {
		return err
	}

	if rememberMe {
		expires := s.now().Add(common.RememberMeDuration).UTC().Format(expiresLayout)
		if err := s.local.Set(ctx, KeyRememberMe, []byte("true")); err != nil {
			return err
		}
		if err := s.local.Set(ctx, KeyRememberMeExpires, []byte(expires)); err != nil {
			return err
		}
		return s.ephemeral.Delete(ctx, KeyToken, KeyUser)
	}

	if err := s.ephemeral.Set(ctx, KeyRememberMe, []byte("false")); err != nil {
		return err
	}
	if err := s.ephemeral.Delete(ctx, KeyRememberMeExpires); err != nil {
		return err
	}
	return s.local.Delete(ctx, KeyToken, KeyUser, KeyRememberMe, KeyRememberMeExpires)
}

// PurgeExpired clears the persistent store when its remember-me session has
// expired. It reports whether a session was purged.
func (s *Store) PurgeExpired(ctx context.Context) (bool, error) {
	_, purged, err := s.preferred(ctx)
	return purged, err
}

// preferred picks the store holding the active session, clearing an expired
// remember-me session on the way.
func (s *Store) preferred(ctx context.Context) (Kind, bool, error) {
	remember, err := s.local.Get(ctx, KeyRememberMe)
	if err != nil {
		return "", false, err
	}
	expiresRaw, err := s.local.Get(ctx, KeyRememberMeExpires)
	if err != nil {
		return "", false, err
	}

	if string(remember) != "true" || len(expiresRaw) == 0 {
		return KindSession, false, nil
	}

	expires, err := time.Parse(time.RFC3339Nano, string(expiresRaw))
	if err == nil && expires.After(s.now()) {
		return KindLocal, false, nil
	}

	if err := s.local.Delete(ctx, KeyRememberMe, KeyRememberMeExpires, KeyToken, KeyUser); err != nil {
		return "", false, err
	}
	return KindSession, true, nil
}

// Load returns the active session, or nil when there is none.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	kind, _, err := s.preferred(ctx)
	if err != nil {
		return nil, err
	}
	repo := s.repo(kind)

	entries, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	token := entries[KeyToken]
	if len(token) == 0 {
		return nil, nil
	}

	sess := &Session{Token: string(token), Kind: kind, RememberMe: kind == KindLocal}

	if raw := entries[KeyUser]; len(raw) > 0 {
		var u models.User
		if json.Unmarshal(raw, &u) == nil {
			sess.User = &u
		}
	}
	return sess, nil
}

// UpdateUser replaces the stored user of the active session. It is a no-op
// without one.
func (s *Store) UpdateUser(ctx context.Context, user models.User) error {
	sess, err := s.Load(ctx)
	if err != nil || sess == nil {
		return err
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.repo(sess.Kind).Set(ctx, KeyUser, raw)
}

// Clear removes the session keys from the persistent store and empties the
// ephemeral one, which holds nothing but the session.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.local.Delete(ctx, KeyToken, KeyUser, KeyRememberMe, KeyRememberMeExpires); err != nil {
		return err
	}
	return s.ephemeral.Clear(ctx)
}
