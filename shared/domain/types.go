package domain

// Core identifier aliases. FileId is the lowercase sha256 hex of the file
// content, so it doubles as the dedup key.
type (
	FileId  = string
	UserId  = string
	AlbumId = string
)
