// Package fs is the content-addressed blob store: bytes live on local disk
// keyed by their sha256, sharded by the first two hex digits.
package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/driftvault/driftvault/shared/domain"
)

// ErrNotFound is returned when no blob exists for the requested hash.
var ErrNotFound = errors.New("blob not found")

// ErrBadHash is returned when a key is not a lowercase-insensitive sha256 hex.
var ErrBadHash = errors.New("invalid content hash")

type Store struct {
	rootPath string
}

func New(rootPath string) (*Store, error) {
	// Use filepath.Clean to prevent path traversal issues like "content/../"
	p := filepath.Clean(rootPath)

	if err := os.MkdirAll(p, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root %s: %w", p, err)
	}

	return &Store{rootPath: p}, nil
}

// Put stores the blob under its content hash. Returns false when an identical
// blob is already present; writing the same hash twice is a no-op. The write
// goes through a temp file plus rename so readers never observe partial bytes
// and a cancelled upload leaves nothing at the final path.
func (s *Store) Put(hash domain.FileId, data io.Reader) (bool, error) {
	target, err := s.blobPath(hash)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(target); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return false, fmt.Errorf("failed to create shard directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "put-*")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmpName) // Best effort, ignore error here.
		return false, fmt.Errorf("failed to write blob data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("failed to finalize blob: %w", err)
	}

	return true, nil
}

// Open returns a reader over the stored bytes for hash.
func (s *Store) Open(hash domain.FileId) (io.ReadCloser, error) {
	target, err := s.blobPath(hash)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}

	return file, nil
}

// SourcePath exposes the on-disk location of a blob for collaborators that
// read finished files directly (thumbnail generation).
func (s *Store) SourcePath(hash domain.FileId) (string, error) {
	return s.blobPath(hash)
}

// Delete removes a single blob. Deleting an absent blob is not an error.
func (s *Store) Delete(hash domain.FileId) error {
	target, err := s.blobPath(hash)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// DeleteByPath removes a blob given its path relative to the root.
// Used by the garbage collector, which discovers blobs via WalkFiles.
func (s *Store) DeleteByPath(relPath string) error {
	full := filepath.Join(s.rootPath, filepath.Clean(relPath))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// WalkFiles lists every stored blob as a path relative to the root.
func (s *Store) WalkFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.rootPath, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk blob root: %w", err)
	}
	return paths, nil
}

// GetFileModTime reports the modification time of a blob by relative path.
func (s *Store) GetFileModTime(relPath string) (time.Time, error) {
	info, err := os.Stat(filepath.Join(s.rootPath, filepath.Clean(relPath)))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (s *Store) blobPath(hash domain.FileId) (string, error) {
	if !validHash(hash) {
		return "", fmt.Errorf("%w: %q", ErrBadHash, hash)
	}
	return filepath.Join(s.rootPath, hash[:2], hash), nil
}

// validHash accepts exactly 64 hex characters. Anything else could escape the
// root via path tricks, so it is rejected before touching the filesystem.
func validHash(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	for i := 0; i < len(hash); i++ {
		c := hash[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
