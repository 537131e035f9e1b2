// Package basekeystore is an in-memory, non-HD hdkeystore.BaseKeyStore:
// a flat map of imported or legacy keys that were never derived from a
// seed. HDKeyStore only ever reads from it.
package basekeystore

import (
	"errors"
	"sync"

	"github.com/yourusername/hdvault/internal/hdkeystore"
)

// ErrKeyNotFound is returned when a KeyID has no entry in the store.
var ErrKeyNotFound = errors.New("basekeystore: key not found")

type entry struct {
	priv []byte
	pub  []byte
}

// Store is a concurrency-safe in-memory BaseKeyStore.
type Store struct {
	mu   sync.RWMutex
	keys map[hdkeystore.KeyID]entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{keys: make(map[hdkeystore.KeyID]entry)}
}

// Add inserts a key pair under its catalog KeyID, derived from pub. priv
// may be nil for a watch-only (public-only) entry.
func (s *Store) Add(pub, priv []byte) hdkeystore.KeyID {
	id := hdkeystore.NewKeyID(pub)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[id] = entry{priv: priv, pub: pub}
	return id
}

// Remove deletes id's entry, if any.
func (s *Store) Remove(id hdkeystore.KeyID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, id)
}

// HaveKey implements hdkeystore.BaseKeyStore.
func (s *Store) HaveKey(id hdkeystore.KeyID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[id]
	return ok
}

// GetKey implements hdkeystore.BaseKeyStore. It fails if id is unknown or
// only a watch-only public key was stored.
func (s *Store) GetKey(id hdkeystore.KeyID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.keys[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	if e.priv == nil {
		return nil, errors.New("basekeystore: key is watch-only, no private material")
	}
	return e.priv, nil
}

// GetPubKey implements hdkeystore.BaseKeyStore.
func (s *Store) GetPubKey(id hdkeystore.KeyID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.keys[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return e.pub, nil
}

// Len reports how many keys are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

var _ hdkeystore.BaseKeyStore = (*Store)(nil)
