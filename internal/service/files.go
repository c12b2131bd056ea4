package service

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/driftvault/driftvault/shared/domain"
	"github.com/driftvault/driftvault/shared/errors"
	"github.com/driftvault/driftvault/shared/logger"
	"github.com/driftvault/driftvault/shared/utils"
)

// FileStorage is the catalog plus ledger surface the file service needs.
type FileStorage interface {
	AppendUpsert(file *domain.File) (int64, error)
	AppendTombstone(id domain.FileId, owner domain.UserId) (*domain.File, int64, error)
	GetFile(id domain.FileId) (*domain.File, error)
}

// BlobStore persists raw content keyed by its sha256.
type BlobStore interface {
	Put(hash domain.FileId, data io.Reader) (bool, error)
	Open(hash domain.FileId) (io.ReadCloser, error)
}

// UploadMeta carries the client-declared attributes of an upload.
type UploadMeta struct {
	OriginalName string
	MimeType     string
	CreationDate time.Time
	Checksum     string
}

type Files struct {
	storage FileStorage
	blobs   BlobStore
	state   *State
}

func NewFiles(storage FileStorage, blobs BlobStore, state *State) *Files {
	return &Files{storage: storage, blobs: blobs, state: state}
}

// Upload verifies the declared checksum against the actual content, stores the
// blob, and appends an upsert to the ledger. The content hash is the file id:
// uploading bytes that are already cataloged returns the existing entry
// without a new ledger record.
func (f *Files) Upload(ctx context.Context, owner domain.UserId, content []byte, meta UploadMeta) (*domain.File, error) {
	computed := utils.Sha256Hex(content)
	if meta.Checksum != "" && !utils.ChecksumMatches(computed, meta.Checksum) {
		integrityRejectionsTotal.Inc()
		logger.Log.Warn("upload rejected, checksum mismatch", "declared", meta.Checksum, "computed", computed)
		return nil, errors.Integrity("corrupted")
	}

	if existing, err := f.storage.GetFile(computed); err == nil && existing.Status == domain.FileProcessed {
		dedupHitsTotal.Inc()
		return existing, nil
	}

	if _, err := f.blobs.Put(computed, bytes.NewReader(content)); err != nil {
		logger.Log.Error("failed to store blob", "id", computed, "error", err)
		return nil, errors.Unavailable("content store unavailable")
	}

	// The blob is durable but uncataloged at this point. If the client is
	// already gone there is no reason to append; the orphaned blob is
	// reclaimed by the garbage collector.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file := &domain.File{
		Id:           computed,
		OriginalName: meta.OriginalName,
		MimeType:     meta.MimeType,
		Size:         int64(len(content)),
		CreationDate: meta.CreationDate.UTC(),
		Checksum:     computed,
		OwnerId:      owner,
	}
	version, err := f.storage.AppendUpsert(file)
	if err != nil {
		return nil, err
	}

	f.state.ApplyUpsert(file)
	filesIngestedTotal.Inc()
	ledgerVersion.Set(float64(version))
	logger.Log.Info("file ingested", "id", file.Id, "size", file.Size, "version", version)
	return file, nil
}

// Delete tombstones a file owned by the caller. The blob stays on disk until
// the garbage collector confirms no active catalog entry references it.
func (f *Files) Delete(id domain.FileId, owner domain.UserId) error {
	_, version, err := f.storage.AppendTombstone(id, owner)
	if err != nil {
		return err
	}

	f.state.ApplyTombstone(id)
	tombstonesTotal.Inc()
	ledgerVersion.Set(float64(version))
	logger.Log.Info("file deleted", "id", id, "version", version)
	return nil
}

// Open returns the catalog entry and a reader over the content for download.
func (f *Files) Open(id domain.FileId, owner domain.UserId) (*domain.File, io.ReadCloser, error) {
	file, err := f.storage.GetFile(id)
	if err != nil {
		return nil, nil, err
	}
	if file.OwnerId != owner || file.Status != domain.FileProcessed {
		return nil, nil, errors.NotFound("file not found")
	}

	reader, err := f.blobs.Open(id)
	if err != nil {
		logger.Log.Error("catalog entry has no blob", "id", id, "error", err)
		return nil, nil, &errors.ErrorWithStatusCode{Message: "content missing", StatusCode: http.StatusInternalServerError}
	}
	return file, reader, nil
}
