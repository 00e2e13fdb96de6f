// Package kv provides the local persistent key/value seam backed by pebble.
// It stores the identity token and the interaction ledger, which must survive
// process restarts
package kv

import (
	"encoding/json"
	stderrs "errors"

	perr "hush/internal/platform/errors"

	"github.com/cockroachdb/pebble"
)

// Store is the minimal surface the localstate repo needs
// Implementations must be safe for use from a single goroutine at a time
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Pebble is the durable Store implementation
type Pebble struct {
	db *pebble.DB
}

var openPebble = pebble.Open // seam

// Open opens (or creates) a pebble database at path
func Open(path string) (*Pebble, error) {
	db, err := openPebble(path, &pebble.Options{})
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeStorage, "open local store")
	}
	return &Pebble{db: db}, nil
}

// Get returns the value for key, with found=false when the key is absent
func (p *Pebble) Get(key string) ([]byte, bool, error) {
	v, closer, err := p.db.Get([]byte(key))
	if stderrs.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, perr.Wrap(err, perr.ErrorCodeStorage, "local store get")
	}
	out := make([]byte, len(v))
	copy(out, v)
	if err := closer.Close(); err != nil {
		return nil, false, perr.Wrap(err, perr.ErrorCodeStorage, "local store get close")
	}
	return out, true, nil
}

// Set writes key=value synchronously; the ledger is write-through so a crash
// between a local toggle and the remote ack never loses the toggle
func (p *Pebble) Set(key string, value []byte) error {
	if err := p.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return perr.Wrap(err, perr.ErrorCodeStorage, "local store set")
	}
	return nil
}

// Delete removes key; deleting a missing key is a no-op
func (p *Pebble) Delete(key string) error {
	if err := p.db.Delete([]byte(key), pebble.Sync); err != nil {
		return perr.Wrap(err, perr.ErrorCodeStorage, "local store delete")
	}
	return nil
}

// Close closes the underlying database
func (p *Pebble) Close() error { return p.db.Close() }

// GetJSON unmarshals the value at key into dst; found=false when absent
func GetJSON(s Store, key string, dst any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, perr.Wrap(err, perr.ErrorCodeStorage, "local store decode")
	}
	return true, nil
}

// SetJSON marshals v and writes it at key
func SetJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeStorage, "local store encode")
	}
	return s.Set(key, raw)
}

// Mem is an in-memory Store used as the degraded fallback when the durable
// store cannot be opened, and as a test double
type Mem struct {
	m map[string][]byte
}

// NewMem returns an empty in-memory store
func NewMem() *Mem { return &Mem{m: map[string][]byte{}} }

// Get implements Store
func (s *Mem) Get(key string) ([]byte, bool, error) {
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set implements Store
func (s *Mem) Set(key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	s.m[key] = cp
	return nil
}

// Delete implements Store
func (s *Mem) Delete(key string) error {
	delete(s.m, key)
	return nil
}

// Close implements Store
func (s *Mem) Close() error { return nil }
