// Package credentials persists the completion provider's API key across
// sessions in a small YAML file.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forPelevin/fallacycheck/internal/apperr"
)

// Key is the fixed name the secret is stored under.
const Key = "openrouterApiKey"

type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is $XDG_CONFIG_HOME/fallacycheck/credentials.yaml (or the OS
// equivalent from os.UserConfigDir).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "fallacycheck", "credentials.yaml"), nil
}

func (s *FileStore) Path() string { return s.path }

// Get returns ErrMissingCredential when nothing is stored.
func (s *FileStore) Get() (string, error) {
	vals, err := s.read()
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(vals[Key])
	if v == "" {
		return "", apperr.ErrMissingCredential
	}
	return v, nil
}

func (s *FileStore) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is empty")
	}
	vals, err := s.read()
	if err != nil {
		return err
	}
	vals[Key] = key
	return s.write(vals)
}

func (s *FileStore) Clear() error {
	vals, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := vals[Key]; !ok {
		return nil
	}
	delete(vals, Key)
	return s.write(vals)
}

func (s *FileStore) read() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	vals := map[string]string{}
	if err := yaml.Unmarshal(b, &vals); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", s.path, err)
	}
	if vals == nil {
		vals = map[string]string{}
	}
	return vals, nil
}

func (s *FileStore) write(vals map[string]string) error {
	b, err := yaml.Marshal(vals)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Mask hides all but the last four characters of a key.
func Mask(key string) string {
	r := []rune(key)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

// Resolver looks up the key in the environment first, then the store.
type Resolver struct {
	Env   func() string
	Store interface{ Get() (string, error) }
}

func (r Resolver) Resolve() (string, error) {
	if r.Env != nil {
		if v := strings.TrimSpace(r.Env()); v != "" {
			return v, nil
		}
	}
	if r.Store == nil {
		return "", apperr.ErrMissingCredential
	}
	return r.Store.Get()
}
