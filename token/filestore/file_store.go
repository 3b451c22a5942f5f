package filestore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-docshare-client/token"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var _ token.Repo = (*Store)(nil)

const (
	fileMode = 0o600
	dirMode  = 0o700

	saltLength    = 16
	argonTime     = 1
	argonMemoryKB = 64 * 1024
	argonThreads  = 4
)

// envelope is the on-disk form of an encrypted pair.
type envelope struct {
	Version    int    `json:"version"`
	Salt       []byte `json:"salt,omitempty"` // set when the key is derived from a passphrase
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Store persists the token pair as a JSON file.
// With a key or passphrase the pair is sealed with XChaCha20-Poly1305.
type Store struct {
	path       string
	key        []byte
	passphrase string
	log        zerolog.Logger
	mu         sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithKey seals the file with a raw 32 byte key.
func WithKey(key []byte) Option {
	return func(s *Store) {
		s.key = key
	}
}

// WithPassphrase seals the file with a key derived from passphrase (argon2id, random salt per write).
func WithPassphrase(passphrase string) Option {
	return func(s *Store) {
		s.passphrase = passphrase
	}
}

// WithLogger sets the logger used for recoverable problems.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// New returns a file store rooted at path. The file is created on first Save.
func New(path string, options ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("[filestore New] path is required")
	}
	s := &Store{path: path, log: zerolog.Nop()}
	for _, opt := range options {
		opt(s)
	}
	if s.key != nil && len(s.key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("[filestore New] key must be %d bytes", chacha20poly1305.KeySize)
	}
	return s, nil
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) encrypted() bool {
	return s.key != nil || s.passphrase != ""
}

func (s *Store) Load(_ context.Context) (token.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return token.Pair{}, nil
	}
	if err != nil {
		return token.Pair{}, fmt.Errorf("[filestore Load] read %s: %w", s.path, err)
	}

	pair, err := s.decode(blob)
	if err != nil {
		return token.Pair{}, fmt.Errorf("[filestore Load] %w", err)
	}

	if !pair.Complete() {
		if !pair.IsZero() {
			s.log.Warn().Str("path", s.path).Msg("discarding incomplete token pair")
		}
		if err := s.remove(); err != nil {
			return token.Pair{}, err
		}
		return token.Pair{}, nil
	}
	return pair, nil
}

func (s *Store) Save(_ context.Context, pair token.Pair) error {
	if !pair.Complete() {
		return errors.New("[filestore Save] incomplete token pair")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := s.encode(pair)
	if err != nil {
		return fmt.Errorf("[filestore Save] %w", err)
	}
	return s.writeAtomic(blob)
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove()
}

func (s *Store) remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("[filestore] remove %s: %w", s.path, err)
	}
	return nil
}

// writeAtomic writes through a temp file in the same directory and renames it into place,
// so a reader never sees a half written pair.
func (s *Store) writeAtomic(blob []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("[filestore] mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("[filestore] create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore] chmod: %w", err)
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore] write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore] sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filestore] close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("[filestore] rename: %w", err)
	}
	return nil
}

func (s *Store) encode(pair token.Pair) ([]byte, error) {
	plain, err := json.Marshal(pair)
	if err != nil {
		return nil, err
	}
	if !s.encrypted() {
		return plain, nil
	}

	env := envelope{Version: 1}
	key := s.key
	if key == nil {
		env.Salt = make([]byte, saltLength)
		if _, err := rand.Read(env.Salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		key = deriveKey(s.passphrase, env.Salt)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	env.Nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(env.Nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	env.Ciphertext = aead.Seal(nil, env.Nonce, plain, []byte(token.AccessTokenKey))
	return json.Marshal(env)
}

func (s *Store) decode(blob []byte) (token.Pair, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return token.Pair{}, fmt.Errorf("corrupt session file: %w", err)
	}

	// a plaintext file has no ciphertext member
	if env.Ciphertext == nil {
		if s.encrypted() {
			return token.Pair{}, errors.New("session file is not encrypted but a key is configured")
		}
		var pair token.Pair
		if err := json.Unmarshal(blob, &pair); err != nil {
			return token.Pair{}, fmt.Errorf("corrupt session file: %w", err)
		}
		return pair, nil
	}

	if !s.encrypted() {
		return token.Pair{}, errors.New("session file is encrypted but no key is configured")
	}

	key := s.key
	if key == nil {
		key = deriveKey(s.passphrase, env.Salt)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return token.Pair{}, err
	}
	if len(env.Nonce) != aead.NonceSize() {
		return token.Pair{}, errors.New("corrupt session file: bad nonce")
	}
	plain, err := aead.Open(nil, env.Nonce, env.Ciphertext, []byte(token.AccessTokenKey))
	if err != nil {
		return token.Pair{}, fmt.Errorf("cannot decrypt session file: %w", err)
	}

	var pair token.Pair
	if err := json.Unmarshal(plain, &pair); err != nil {
		return token.Pair{}, fmt.Errorf("corrupt session payload: %w", err)
	}
	return pair, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemoryKB, argonThreads, chacha20poly1305.KeySize)
}
