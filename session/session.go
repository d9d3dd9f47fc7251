package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"library-client/library"
)

// Keys under which the session is stored.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Session reads and writes the signed-in user's token and profile.
type Session struct {
	store Store
}

func New(store Store) *Session {
	return &Session{store: store}
}

// Token returns the stored bearer token, or "" when signed out. A value
// that no longer decrypts (the session key changed) counts as signed out.
func (s *Session) Token(ctx context.Context) (string, error) {
	tok, _, err := s.get(ctx, KeyToken)
	return tok, err
}

// get reads key, dropping the whole session when it cannot be decrypted.
func (s *Session) get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.store.Get(ctx, key)
	if !errors.Is(err, ErrSealBroken) {
		return v, ok, err
	}
	log.Warn().Err(err).Msg("stored session is unreadable with the current key; signing out")
	if cerr := s.Clear(ctx); cerr != nil {
		return "", false, fmt.Errorf("clear unreadable session: %w", cerr)
	}
	return "", false, nil
}

// Active reports whether a token is stored.
func (s *Session) Active(ctx context.Context) bool {
	tok, err := s.Token(ctx)
	return err == nil && tok != ""
}

// Profile returns the stored user profile, or nil when none is stored.
func (s *Session) Profile(ctx context.Context) (*library.User, error) {
	raw, ok, err := s.get(ctx, KeyUser)
	if err != nil || !ok || raw == "" {
		return nil, err
	}
	var u library.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decode stored profile: %w", err)
	}
	return &u, nil
}

// Start stores a fresh token and, when given, the profile that goes with it.
func (s *Session) Start(ctx context.Context, token string, profile *library.User) error {
	if err := s.store.Set(ctx, KeyToken, token); err != nil {
		return err
	}
	if profile == nil {
		return nil
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.store.Set(ctx, KeyUser, string(raw))
}

// Clear signs the user out.
func (s *Session) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, KeyToken, KeyUser)
}

func (s *Session) Close() error { return s.store.Close() }
