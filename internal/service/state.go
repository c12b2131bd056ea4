package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/driftvault/driftvault/shared/domain"
)

// State maintains an order-independent digest over the set of active files.
// Each file contributes a fixed-size tuple hash derived from its identity,
// checksum and version; the digest is the XOR of all tuple hashes, so applying
// the same changes in any order converges to the same value.
type State struct {
	mu     sync.Mutex
	acc    [sha256.Size]byte
	tuples map[domain.FileId][sha256.Size]byte
}

func NewState() *State {
	return &State{tuples: make(map[domain.FileId][sha256.Size]byte)}
}

func tupleHash(id domain.FileId, checksum string, version int64) [sha256.Size]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", id, checksum, version)))
}

func (s *State) xor(h [sha256.Size]byte) {
	for i := range s.acc {
		s.acc[i] ^= h[i]
	}
}

// ApplyUpsert folds a file's new catalog state into the digest, retracting the
// tuple of any previous version of the same file first.
func (s *State) ApplyUpsert(file *domain.File) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tuples[file.Id]; ok {
		s.xor(old)
	}
	h := tupleHash(file.Id, file.Checksum, file.Version)
	s.tuples[file.Id] = h
	s.xor(h)
}

// ApplyTombstone retracts a file's tuple. Unknown ids are a no-op so replays
// of already-applied tombstones stay idempotent.
func (s *State) ApplyTombstone(id domain.FileId) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.tuples[id]
	if !ok {
		return
	}
	s.xor(old)
	delete(s.tuples, id)
}

// Rebuild resets the digest from a full snapshot of active files.
func (s *State) Rebuild(files []domain.File) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.acc = [sha256.Size]byte{}
	s.tuples = make(map[domain.FileId][sha256.Size]byte, len(files))
	for i := range files {
		f := &files[i]
		h := tupleHash(f.Id, f.Checksum, f.Version)
		s.tuples[f.Id] = h
		s.xor(h)
	}
}

// Digest returns the current state hash and the number of active files.
func (s *State) Digest() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hex.EncodeToString(s.acc[:]), len(s.tuples)
}
