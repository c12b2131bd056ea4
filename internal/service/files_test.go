package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftvault/driftvault/shared/domain"
	internal_errors "github.com/driftvault/driftvault/shared/errors"
	"github.com/driftvault/driftvault/shared/utils"
)

// MockFileStorage mocks the FileStorage interface.
type MockFileStorage struct {
	appendUpsertFunc    func(file *domain.File) (int64, error)
	appendTombstoneFunc func(id domain.FileId, owner domain.UserId) (*domain.File, int64, error)
	getFileFunc         func(id domain.FileId) (*domain.File, error)
}

func (m *MockFileStorage) AppendUpsert(file *domain.File) (int64, error) {
	if m.appendUpsertFunc != nil {
		return m.appendUpsertFunc(file)
	}
	file.Version = 1
	file.Status = domain.FileProcessed
	return 1, nil
}

func (m *MockFileStorage) AppendTombstone(id domain.FileId, owner domain.UserId) (*domain.File, int64, error) {
	if m.appendTombstoneFunc != nil {
		return m.appendTombstoneFunc(id, owner)
	}
	return &domain.File{Id: id}, 2, nil
}

func (m *MockFileStorage) GetFile(id domain.FileId) (*domain.File, error) {
	if m.getFileFunc != nil {
		return m.getFileFunc(id)
	}
	return nil, internal_errors.NotFound("file not found")
}

// MockBlobStore mocks the BlobStore interface.
type MockBlobStore struct {
	putFunc  func(hash domain.FileId, data io.Reader) (bool, error)
	openFunc func(hash domain.FileId) (io.ReadCloser, error)
	puts     int
}

func (m *MockBlobStore) Put(hash domain.FileId, data io.Reader) (bool, error) {
	m.puts++
	if m.putFunc != nil {
		return m.putFunc(hash, data)
	}
	return true, nil
}

func (m *MockBlobStore) Open(hash domain.FileId) (io.ReadCloser, error) {
	if m.openFunc != nil {
		return m.openFunc(hash)
	}
	return io.NopCloser(strings.NewReader("content")), nil
}

func uploadMeta(checksum string) UploadMeta {
	return UploadMeta{
		OriginalName: "photo.jpg",
		MimeType:     "image/jpeg",
		CreationDate: time.Now().UTC(),
		Checksum:     checksum,
	}
}

func TestUploadHappyPath(t *testing.T) {
	content := []byte("hello world")
	checksum := utils.Sha256Hex(content)

	storage := &MockFileStorage{}
	blobs := &MockBlobStore{}
	svc := NewFiles(storage, blobs, NewState())

	file, err := svc.Upload(context.Background(), "u1", content, uploadMeta(checksum))
	require.NoError(t, err)
	assert.Equal(t, checksum, file.Id, "content hash is the id")
	assert.Equal(t, checksum, file.Checksum)
	assert.Equal(t, int64(len(content)), file.Size)
	assert.Equal(t, domain.FileProcessed, file.Status)
	assert.Equal(t, 1, blobs.puts)
}

func TestUploadChecksumMismatch(t *testing.T) {
	content := []byte("hello world")

	appendCalled := false
	storage := &MockFileStorage{
		appendUpsertFunc: func(file *domain.File) (int64, error) {
			appendCalled = true
			return 1, nil
		},
	}
	blobs := &MockBlobStore{}
	svc := NewFiles(storage, blobs, NewState())

	_, err := svc.Upload(context.Background(), "u1", content, uploadMeta(strings.Repeat("00", 32)))
	require.Error(t, err)
	e, ok := err.(*internal_errors.ErrorWithStatusCode)
	require.True(t, ok, "Expected ErrorWithStatusCode")
	assert.Equal(t, 400, e.StatusCode)
	assert.Equal(t, "corrupted", e.Message)
	assert.Equal(t, 0, blobs.puts, "nothing must be written on a failed verification")
	assert.False(t, appendCalled)
}

func TestUploadChecksumIsCaseInsensitive(t *testing.T) {
	content := []byte("hello world")
	checksum := strings.ToUpper(utils.Sha256Hex(content))

	svc := NewFiles(&MockFileStorage{}, &MockBlobStore{}, NewState())
	_, err := svc.Upload(context.Background(), "u1", content, uploadMeta(checksum))
	assert.NoError(t, err)
}

func TestUploadDedupReturnsExistingEntry(t *testing.T) {
	content := []byte("hello world")
	checksum := utils.Sha256Hex(content)
	existing := &domain.File{Id: checksum, Checksum: checksum, Status: domain.FileProcessed, Version: 7}

	appendCalled := false
	storage := &MockFileStorage{
		getFileFunc: func(id domain.FileId) (*domain.File, error) {
			return existing, nil
		},
		appendUpsertFunc: func(file *domain.File) (int64, error) {
			appendCalled = true
			return 8, nil
		},
	}
	blobs := &MockBlobStore{}
	svc := NewFiles(storage, blobs, NewState())

	file, err := svc.Upload(context.Background(), "u1", content, uploadMeta(checksum))
	require.NoError(t, err)
	assert.Equal(t, int64(7), file.Version, "duplicate upload returns the existing entry")
	assert.False(t, appendCalled)
	assert.Equal(t, 0, blobs.puts)
}

func TestUploadAfterTombstoneReingests(t *testing.T) {
	content := []byte("hello world")
	checksum := utils.Sha256Hex(content)

	storage := &MockFileStorage{
		getFileFunc: func(id domain.FileId) (*domain.File, error) {
			return &domain.File{Id: checksum, Status: domain.FileDeleted, Version: 3}, nil
		},
		appendUpsertFunc: func(file *domain.File) (int64, error) {
			file.Version = 4
			file.Status = domain.FileProcessed
			return 4, nil
		},
	}
	svc := NewFiles(storage, &MockBlobStore{}, NewState())

	file, err := svc.Upload(context.Background(), "u1", content, uploadMeta(checksum))
	require.NoError(t, err)
	assert.Equal(t, int64(4), file.Version, "deleted entry is revived with a fresh record")
}

func TestUploadCancelledBeforeAppend(t *testing.T) {
	content := []byte("hello world")
	checksum := utils.Sha256Hex(content)

	appendCalled := false
	storage := &MockFileStorage{
		appendUpsertFunc: func(file *domain.File) (int64, error) {
			appendCalled = true
			return 1, nil
		},
	}
	svc := NewFiles(storage, &MockBlobStore{}, NewState())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Upload(ctx, "u1", content, uploadMeta(checksum))
	require.Error(t, err)
	assert.False(t, appendCalled, "no ledger record once the client is gone")
}

func TestUploadUpdatesStateDigest(t *testing.T) {
	content := []byte("hello world")
	checksum := utils.Sha256Hex(content)

	state := NewState()
	before, _ := state.Digest()

	svc := NewFiles(&MockFileStorage{}, &MockBlobStore{}, state)
	_, err := svc.Upload(context.Background(), "u1", content, uploadMeta(checksum))
	require.NoError(t, err)

	after, count := state.Digest()
	assert.NotEqual(t, before, after)
	assert.Equal(t, 1, count)
}

func TestDeleteRetractsFromState(t *testing.T) {
	content := []byte("hello world")
	checksum := utils.Sha256Hex(content)

	state := NewState()
	svc := NewFiles(&MockFileStorage{}, &MockBlobStore{}, state)
	_, err := svc.Upload(context.Background(), "u1", content, uploadMeta(checksum))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(checksum, "u1"))
	digest, count := state.Digest()
	assert.Equal(t, strings.Repeat("0", 64), digest)
	assert.Equal(t, 0, count)
}

func TestDeletePropagatesNotFound(t *testing.T) {
	storage := &MockFileStorage{
		appendTombstoneFunc: func(id domain.FileId, owner domain.UserId) (*domain.File, int64, error) {
			return nil, 0, internal_errors.NotFound("file not found")
		},
	}
	svc := NewFiles(storage, &MockBlobStore{}, NewState())

	err := svc.Delete(strings.Repeat("aa", 32), "u1")
	require.Error(t, err)
	e, ok := err.(*internal_errors.ErrorWithStatusCode)
	require.True(t, ok, "Expected ErrorWithStatusCode")
	assert.Equal(t, 404, e.StatusCode)
}

func TestOpenChecksOwnershipAndStatus(t *testing.T) {
	id := strings.Repeat("ab", 32)
	storage := &MockFileStorage{
		getFileFunc: func(fid domain.FileId) (*domain.File, error) {
			return &domain.File{Id: id, OwnerId: "owner", Status: domain.FileProcessed}, nil
		},
	}
	svc := NewFiles(storage, &MockBlobStore{}, NewState())

	t.Run("owner can read", func(t *testing.T) {
		file, rc, err := svc.Open(id, "owner")
		require.NoError(t, err)
		defer rc.Close()
		assert.Equal(t, id, file.Id)
	})

	t.Run("foreign caller gets 404", func(t *testing.T) {
		_, _, err := svc.Open(id, "intruder")
		require.Error(t, err)
		e, ok := err.(*internal_errors.ErrorWithStatusCode)
		require.True(t, ok, "Expected ErrorWithStatusCode")
		assert.Equal(t, 404, e.StatusCode)
	})

	t.Run("deleted file gets 404", func(t *testing.T) {
		storage.getFileFunc = func(fid domain.FileId) (*domain.File, error) {
			return &domain.File{Id: id, OwnerId: "owner", Status: domain.FileDeleted}, nil
		}
		_, _, err := svc.Open(id, "owner")
		assert.Error(t, err)
	})
}
