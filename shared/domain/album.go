package domain

import "time"

// Album references files owned by the catalog; it never writes ledger records.
// Version is the album's own counter, bumped on every membership change,
// independent of file versions.
type Album struct {
	Id        AlbumId   `json:"id"`
	Title     string    `json:"title"`
	OwnerId   UserId    `json:"-"`
	FileIds   []FileId  `json:"fileIds"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}
