package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrSealBroken is returned when a stored value cannot be opened with the
// configured key.
var ErrSealBroken = errors.New("session value cannot be decrypted")

// SealedStore encrypts values before handing them to the wrapped store, so
// a token at rest is useless without the session key.
type SealedStore struct {
	inner Store
	key   [32]byte
}

// NewSealedStore derives an encryption key from secret and wraps inner.
func NewSealedStore(inner Store, secret string) (*SealedStore, error) {
	if secret == "" {
		return nil, errors.New("session key is empty")
	}
	s := &SealedStore{inner: inner}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("library-client session"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return s, nil
}

func (s *SealedStore) Get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	box, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(box) < nonceSize {
		return "", false, fmt.Errorf("session %q: %w", key, ErrSealBroken)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", false, fmt.Errorf("session %q: %w", key, ErrSealBroken)
	}
	return string(plain), true, nil
}

func (s *SealedStore) Set(ctx context.Context, key, value string) error {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("session nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	return s.inner.Set(ctx, key, base64.StdEncoding.EncodeToString(box))
}

func (s *SealedStore) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

func (s *SealedStore) Close() error { return s.inner.Close() }
