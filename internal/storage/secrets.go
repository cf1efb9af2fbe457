package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"makermate/internal/logging"
)

const (
	// SecretPrefix namespaces every secret key
	SecretPrefix = "mm.secret."

	saltKey     = "mm.secretkdf.v1"
	sealedMagic = "enc:v1:"
)

// SecretStore stores provider API keys and similar values. When built with
// a passphrase the values are sealed with AES-GCM; otherwise they are kept
// in the clear. Like the other typed helpers it never fails.
type SecretStore struct {
	store Store
	enc   *Encryption
}

// NewSecretStore returns a clear-text secret store
func NewSecretStore(store Store) *SecretStore {
	return &SecretStore{store: store}
}

// NewSealedSecretStore derives the sealing key from passphrase. The salt is
// generated once and kept alongside the secrets.
func NewSealedSecretStore(ctx context.Context, store Store, passphrase string) (*SecretStore, error) {
	salt, err := loadSalt(ctx, store)
	if err != nil {
		return nil, err
	}
	enc, err := NewEncryptionFromPassphrase(passphrase, salt)
	if err != nil {
		return nil, err
	}
	return &SecretStore{store: store, enc: enc}, nil
}

func loadSalt(ctx context.Context, store Store) ([]byte, error) {
	raw, err := store.Get(ctx, saltKey)
	if err == nil {
		if salt, decErr := base64.StdEncoding.DecodeString(raw); decErr == nil && len(salt) >= 8 {
			return salt, nil
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := store.Set(ctx, saltKey, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, err
	}
	return salt, nil
}

// Get returns the secret or fallback when absent or unreadable
func (s *SecretStore) Get(ctx context.Context, key, fallback string) string {
	raw, err := s.store.Get(ctx, SecretPrefix+key)
	if err != nil {
		return fallback
	}
	if !strings.HasPrefix(raw, sealedMagic) {
		return raw
	}
	if s.enc == nil {
		logging.Debugf("storage: secret %s is sealed but no passphrase is configured", key)
		return fallback
	}
	plain, err := s.enc.Decrypt(strings.TrimPrefix(raw, sealedMagic))
	if err != nil {
		logging.Debugf("storage: open secret %s: %v", key, err)
		return fallback
	}
	return string(plain)
}

// Set stores value under key, sealing it when a passphrase is configured
func (s *SecretStore) Set(ctx context.Context, key, value string) {
	stored := value
	if s.enc != nil {
		sealed, err := s.enc.Encrypt([]byte(value))
		if err != nil {
			logging.Debugf("storage: seal secret %s: %v", key, err)
			return
		}
		stored = sealedMagic + sealed
	}
	SetString(ctx, s.store, SecretPrefix+key, stored)
}

// Delete removes the secret
func (s *SecretStore) Delete(ctx context.Context, key string) {
	RemoveItem(ctx, s.store, SecretPrefix+key)
}

// Sealed reports whether values are encrypted at rest
func (s *SecretStore) Sealed() bool {
	return s.enc != nil
}
