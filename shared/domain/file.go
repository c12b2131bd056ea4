package domain

import "time"

type FileStatus string

const (
	FileProcessed FileStatus = "processed"
	FileDeleted   FileStatus = "deleted"
)

type ChangeKind string

const (
	ChangeUpsert    ChangeKind = "upsert"
	ChangeTombstone ChangeKind = "tombstone"
)

// File is the catalog row for one stored object. Identity is content-derived:
// Id equals Checksum, so byte-identical uploads resolve to the same File.
type File struct {
	Id           FileId     `json:"id"`
	OriginalName string     `json:"originalName"`
	MimeType     string     `json:"mimeType"`
	Size         int64      `json:"size"`
	CreationDate time.Time  `json:"creationDate"`
	Checksum     string     `json:"checksum"`
	OwnerId      UserId     `json:"-"`
	Status       FileStatus `json:"status"`
	Version      int64      `json:"version"`
}

// LedgerRecord is one immutable entry of the append-only change log.
// Ordering by Version is the only ordering guarantee; Timestamp is
// informational.
type LedgerRecord struct {
	Version   int64
	FileId    FileId
	Kind      ChangeKind
	Payload   *File // nil for tombstones
	Timestamp time.Time
}

// SyncPage is one page of the incremental sync protocol. Items carries upsert
// snapshots, DeletedIds tombstoned file ids, NextVersion the cursor the client
// should present on its next call.
type SyncPage struct {
	Items       []File   `json:"items"`
	DeletedIds  []FileId `json:"deletedIds"`
	NextVersion int64    `json:"nextVersion"`
}
