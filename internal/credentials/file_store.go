package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	nonceSize = 12
)

// FileStore is an encrypted file-backed Store. The whole credential map is
// serialized to JSON and sealed with AES-GCM; the key is derived from the
// configured secret with argon2id and a per-file random salt.
type FileStore struct {
	mu     sync.Mutex
	path   string
	secret []byte
}

// NewFileStore creates a store backed by the file at path. The file is
// created on first write.
func NewFileStore(path, secret string) (*FileStore, error) {
	if secret == "" {
		return nil, errors.New("credentials secret must not be empty")
	}
	return &FileStore{path: path, secret: []byte(secret)}, nil
}

func (s *FileStore) Get(service, account string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}

	value, ok := values[service+"/"+account]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *FileStore) Set(service, account, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}

	values[service+"/"+account] = value
	return s.save(values)
}

func (s *FileStore) Delete(service, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := values[service+"/"+account]; !ok {
		return nil
	}
	delete(values, service+"/"+account)
	return s.save(values)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}

	if len(data) < saltSize+nonceSize {
		return nil, errors.New("credential store is truncated")
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	ciphertext := data[saltSize+nonceSize:]

	gcm, err := s.sealer(salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credential store: %w", err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, fmt.Errorf("corrupt credential store: %w", err)
	}
	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	plaintext, err := json.Marshal(values)
	if err != nil {
		return err
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	gcm, err := s.sealer(salt)
	if err != nil {
		return err
	}

	data := make([]byte, 0, saltSize+nonceSize+len(plaintext)+gcm.Overhead())
	data = append(data, salt...)
	data = append(data, nonce...)
	data = gcm.Seal(data, nonce, plaintext, nil)

	// Write to a temp file and rename so a crash cannot leave a half-written store
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credential store dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) sealer(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(s.secret, salt, 1, 64*1024, 4, 32)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
