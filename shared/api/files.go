package api

import "github.com/driftvault/driftvault/shared/domain"

// Request DTOs

// UploadMeta carries the multipart form fields accompanying the file part.
type UploadMeta struct {
	CreationDate string `json:"creationDate" validate:"required"`
	MimeType     string `json:"mimeType" validate:"required"`
	OriginalName string `json:"originalName" validate:"required"`
}

// Response DTOs

type UploadResponse struct {
	Id       domain.FileId `json:"id"`
	Checksum string        `json:"checksum"`
	Status   string        `json:"status"`
}

type SyncResponse struct {
	Items       []domain.File   `json:"items"`
	DeletedIds  []domain.FileId `json:"deletedIds"`
	NextVersion int64           `json:"nextVersion"`
}

type StateResponse struct {
	StateHash string `json:"stateHash"`
	FileCount int    `json:"fileCount"`
}
