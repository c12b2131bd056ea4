package fs

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftvault/driftvault/shared/utils"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestPutOpenRoundtrip(t *testing.T) {
	s := newStore(t)
	data := []byte("blob contents")
	hash := utils.Sha256Hex(data)

	stored, err := s.Put(hash, bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, stored)

	rc, err := s.Open(hash)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPutIsIdempotent(t *testing.T) {
	s := newStore(t)
	data := []byte("same bytes twice")
	hash := utils.Sha256Hex(data)

	stored, err := s.Put(hash, bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = s.Put(hash, bytes.NewReader(data))
	require.NoError(t, err)
	assert.False(t, stored, "second put of the same hash should be a no-op")
}

func TestOpenUnknownHash(t *testing.T) {
	s := newStore(t)
	_, err := s.Open(strings.Repeat("ab", 32))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectsInvalidHashes(t *testing.T) {
	s := newStore(t)

	for _, hash := range []string{
		"",
		"short",
		"../../../../etc/passwd",
		strings.Repeat("a", 63) + "/",
		strings.Repeat("g", 64), // right length, not hex
	} {
		_, err := s.Put(hash, bytes.NewReader([]byte("x")))
		assert.ErrorIs(t, err, ErrBadHash, "hash %q", hash)
		_, err = s.Open(hash)
		assert.ErrorIs(t, err, ErrBadHash, "hash %q", hash)
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	data := []byte("to be deleted")
	hash := utils.Sha256Hex(data)

	_, err := s.Put(hash, bytes.NewReader(data))
	require.NoError(t, err)

	require.NoError(t, s.Delete(hash))
	_, err = s.Open(hash)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting again is fine
	assert.NoError(t, s.Delete(hash))
}

func TestWalkFiles(t *testing.T) {
	s := newStore(t)

	var hashes []string
	for _, payload := range []string{"one", "two", "three"} {
		h := utils.Sha256Hex([]byte(payload))
		_, err := s.Put(h, strings.NewReader(payload))
		require.NoError(t, err)
		hashes = append(hashes, h)
	}

	paths, err := s.WalkFiles()
	require.NoError(t, err)
	require.Len(t, paths, 3)

	for _, h := range hashes {
		assert.Contains(t, paths, filepath.Join(h[:2], h))
	}

	// every walked path has a readable mod time
	for _, p := range paths {
		_, err := s.GetFileModTime(p)
		assert.NoError(t, err)
	}
}
