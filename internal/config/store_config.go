package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// StoreKind selects where the session tokens are persisted.
type StoreKind string

const (
	StoreFile   StoreKind = "file"
	StoreRedis  StoreKind = "redis"
	StoreMemory StoreKind = "memory"
)

type StoreConfig interface {
	GetTokenStore() StoreKind
	GetTokenFile() string
	GetTokenKey() []byte
	GetTokenPassphrase() string
	GetRedisURL() string
}

type Store struct {
	Kind       StoreKind `env:"DOCSHARE_TOKEN_STORE" envDefault:"file"`
	File       string    `env:"DOCSHARE_TOKEN_FILE"`
	KeyHex     string    `env:"DOCSHARE_TOKEN_KEY"`
	Passphrase string    `env:"DOCSHARE_TOKEN_PASSPHRASE"`
	RedisURL   string    `env:"DOCSHARE_REDIS_URL" envDefault:"redis://localhost:6379/0"`

	profile string // copied from EnvVars after parsing
}

var _ StoreConfig = Store{}

func (s Store) GetTokenStore() StoreKind {
	return s.Kind
}

// GetTokenFile defaults to <user config dir>/docshare/session-<profile>.json
func (s Store) GetTokenFile() string {
	if s.File != "" {
		return s.File
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "docshare", fmt.Sprintf("session-%s.json", s.profile))
}

// GetTokenKey returns the 32 byte file encryption key, nil when not configured
func (s Store) GetTokenKey() []byte {
	if s.KeyHex == "" {
		return nil
	}
	key, err := hex.DecodeString(s.KeyHex)
	if err != nil {
		return nil
	}
	return key
}

func (s Store) GetTokenPassphrase() string {
	return s.Passphrase
}

func (s Store) GetRedisURL() string {
	return s.RedisURL
}

func (s Store) validate() error {
	switch s.Kind {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown token store %q", s.Kind)
	}
	if s.KeyHex != "" {
		key, err := hex.DecodeString(s.KeyHex)
		if err != nil {
			return fmt.Errorf("token key is not hex: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("token key must be 32 bytes (64 hex chars), got %d", len(key))
		}
	}
	return nil
}
