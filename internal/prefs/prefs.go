package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bz888/solver/internal/language"
	"gopkg.in/yaml.v3"
)

// LanguageKey stores the last selected target language.
const LanguageKey = "preferredLanguage"

// Store is a small key-value preference store.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// FileStore keeps preferences as a flat YAML map on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

func (s *FileStore) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse preferences %s: %w", s.path, err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.yaml")
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write preferences: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// MemoryStore is a Store that forgets everything on exit.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// LoadLanguage returns the stored language. A missing or unreadable value
// yields language.Default; the error is returned so callers can log it.
func LoadLanguage(store Store) (language.Language, error) {
	raw, ok, err := store.Get(LanguageKey)
	if err != nil {
		return language.Default, err
	}
	if !ok {
		return language.Default, nil
	}
	lang, err := language.Parse(raw)
	if err != nil {
		return language.Default, fmt.Errorf("stored preference: %w", err)
	}
	return lang, nil
}

func SaveLanguage(store Store, lang language.Language) error {
	if !lang.Valid() {
		return fmt.Errorf("%w: %q", language.ErrUnsupported, lang)
	}
	return store.Set(LanguageKey, lang.String())
}
