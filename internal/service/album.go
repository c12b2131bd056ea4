package service

import (
	"github.com/driftvault/driftvault/shared/domain"
	"github.com/driftvault/driftvault/shared/logger"
)

// AlbumStorage is the persistence surface for album state.
type AlbumStorage interface {
	CreateAlbum(owner domain.UserId, title string) (domain.AlbumId, error)
	AddAlbumFiles(albumId domain.AlbumId, owner domain.UserId, fileIds []domain.FileId) (int64, error)
	AlbumsByOwner(owner domain.UserId) ([]domain.Album, error)
}

// AlbumCatalog resolves file ids to the caller's own catalog entries.
type AlbumCatalog interface {
	GetOwnedFiles(owner domain.UserId, ids []domain.FileId) ([]domain.File, error)
}

type Albums struct {
	storage AlbumStorage
	catalog AlbumCatalog
}

func NewAlbums(storage AlbumStorage, catalog AlbumCatalog) *Albums {
	return &Albums{storage: storage, catalog: catalog}
}

func (a *Albums) Create(owner domain.UserId, title string) (domain.AlbumId, error) {
	id, err := a.storage.CreateAlbum(owner, title)
	if err != nil {
		return "", err
	}
	logger.Log.Info("album created", "album_id", id, "owner", owner)
	return id, nil
}

// AddFiles attaches files to an album after confirming every id resolves to a
// processed file owned by the caller. Duplicate additions are ignored.
// Returns the album's version after the change.
func (a *Albums) AddFiles(albumId domain.AlbumId, owner domain.UserId, fileIds []domain.FileId) (int64, error) {
	if _, err := a.catalog.GetOwnedFiles(owner, fileIds); err != nil {
		return 0, err
	}
	return a.storage.AddAlbumFiles(albumId, owner, fileIds)
}

func (a *Albums) Sync(owner domain.UserId) ([]domain.Album, error) {
	albums, err := a.storage.AlbumsByOwner(owner)
	if err != nil {
		return nil, err
	}
	if albums == nil {
		albums = []domain.Album{}
	}
	return albums, nil
}
