package api

import "github.com/driftvault/driftvault/shared/domain"

type CreateAlbumRequest struct {
	Title string `json:"title" validate:"required"`
}

type CreateAlbumResponse struct {
	Id domain.AlbumId `json:"id"`
}

type AddAlbumFilesRequest struct {
	FileIds []domain.FileId `json:"fileIds" validate:"required,min=1"`
}

type AddAlbumFilesResponse struct {
	Version int64 `json:"version"`
}

type AlbumResponse struct {
	domain.Album
	Count int `json:"count"`
}

type AlbumSyncResponse struct {
	Albums []AlbumResponse `json:"albums"`
}
