package keystore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnknownKey is returned when a named key does not exist in the store.
var ErrUnknownKey = errors.New("unknown key")

// Store keeps agent seeds as hex files in a directory, one file per name.
type Store struct {
	Directory string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Directory: dir}
}

// CheckKeyName rejects names that are not safe file names.
func CheckKeyName(name string) error {
	if name == "" {
		return errors.New("key name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in key name", char)
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.Directory, name+".key")
}

// Create generates a new key under name. It fails if the name is taken.
func (s *Store) Create(name string) (*KeyPair, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}
	kp, err := Generate()
	if err != nil {
		return nil, err
	}
	if err := s.save(name, kp.Seed()); err != nil {
		return nil, err
	}
	return kp, nil
}

// Load reads the key stored under name.
func (s *Store) Load(name string) (*KeyPair, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, name)
		}
		return nil, fmt.Errorf("read key %s: %w", name, err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parse key %s: %w", name, err)
	}
	return FromSeed(seed)
}

// LoadOrCreate loads name, creating it on first use.
func (s *Store) LoadOrCreate(name string) (*KeyPair, error) {
	kp, err := s.Load(name)
	if errors.Is(err, ErrUnknownKey) {
		return s.Create(name)
	}
	return kp, err
}

// List returns the stored key names in sorted order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Directory)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".key") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".key"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) save(name string, seed []byte) error {
	if err := os.MkdirAll(s.Directory, 0o700); err != nil {
		return err
	}
	file, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create key %s: %w", name, err)
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}
