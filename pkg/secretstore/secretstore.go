package secretstore

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrNotOpened is returned by every operation on a nil or closed store.
var ErrNotOpened = errors.New("secretstore: not opened")

// Store is a small encrypted-at-rest KV wrapper (Badger).
// Encryption is provided by Badger options (value log + key registry), not by this wrapper.
type Store struct {
	db *badger.DB
}

type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 bytes; nil opens the DB without encryption
	ReadOnly      bool
	InMemory      bool // tests only; Path is ignored
}

func Open(opts OpenOptions) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(opts.Path) == "" {
			return nil, errors.New("secretstore: path is required")
		}
		bopts = badger.DefaultOptions(opts.Path).WithReadOnly(opts.ReadOnly)
	}
	bopts = bopts.WithLogger(nil)
	if len(opts.EncryptionKey) > 0 {
		// Badger requires an index cache for encrypted workloads
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(16 << 20)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("secretstore: open: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) key(key string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotOpened
	}
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return nil, errors.New("secretstore: key is empty")
	}
	return k, nil
}

// Get returns the raw value and whether the key exists.
func (s *Store) Get(key string) ([]byte, bool, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, false, err
	}
	var out []byte
	found := false
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, found, nil
}

// Set stores the raw value under key.
func (s *Store) Set(key string, val []byte) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, val)
	})
}

func (s *Store) GetString(key string) (string, bool, error) {
	b, ok, err := s.Get(key)
	return string(b), ok, err
}

func (s *Store) SetString(key string, val string) error {
	return s.Set(key, []byte(val))
}

// GetJSON decodes the value under key into out. Missing keys leave out untouched.
func (s *Store) GetJSON(key string, out any) (bool, error) {
	b, ok, err := s.Get(key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return true, fmt.Errorf("secretstore: decode %q: %w", key, err)
	}
	return true, nil
}

func (s *Store) SetJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("secretstore: encode %q: %w", key, err)
	}
	return s.Set(key, b)
}

// Delete removes key; deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

// Keys lists keys with the given prefix.
func (s *Store) Keys(prefix string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotOpened
	}
	var out []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			out = append(out, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return out, err
}

// ParseKey expects 32 bytes (hex or base64). Returns nil if input is empty.
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	// hex first, so 64 hex chars are never read as base64
	if b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x")); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	return nil, errors.New("key must be base64(32 bytes) or hex(32 bytes)")
}
