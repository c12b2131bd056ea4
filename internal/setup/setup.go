package setup

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/driftvault/driftvault/internal/handler"
	"github.com/driftvault/driftvault/internal/service"
	"github.com/driftvault/driftvault/internal/storage/fs"
	"github.com/driftvault/driftvault/internal/storage/memory"
	"github.com/driftvault/driftvault/internal/storage/pg"
	"github.com/driftvault/driftvault/shared/config"
	"github.com/driftvault/driftvault/shared/domain"
	"github.com/driftvault/driftvault/shared/jwt"
	"github.com/driftvault/driftvault/shared/logger"
)

// Storage is the full catalog/ledger/user/album surface, satisfied by both
// the Postgres and the in-memory backend.
type Storage interface {
	AppendUpsert(file *domain.File) (int64, error)
	AppendTombstone(id domain.FileId, owner domain.UserId) (*domain.File, int64, error)
	GetFile(id domain.FileId) (*domain.File, error)
	ChangesSince(since int64, limit int) ([]domain.LedgerRecord, error)
	HighWater() (int64, error)
	ActiveFiles() ([]domain.File, error)
	OwnedBytes(owner domain.UserId) (int64, error)
	GetOwnedFiles(owner domain.UserId, ids []domain.FileId) ([]domain.File, error)

	CreateUser(creds *domain.Credentials) error
	GetUserByEmail(email string) (*domain.Credentials, error)
	GetUser(id domain.UserId) (*domain.User, error)
	UpdateUserName(id domain.UserId, name string) error

	CreateAlbum(owner domain.UserId, title string) (domain.AlbumId, error)
	AddAlbumFiles(albumId domain.AlbumId, owner domain.UserId, fileIds []domain.FileId) (int64, error)
	AlbumsByOwner(owner domain.UserId) ([]domain.Album, error)

	Ping(ctx context.Context) error
	Cleanup() error
}

// Dependencies holds all initialized application components.
type Dependencies struct {
	Storage Storage
	Blobs   *fs.Store
	State   *service.State
	GC      *service.GarbageCollector
	Tokens  jwt.TokenService
	Handler *handler.Handler
	Config  *config.Config
}

// SetupDependencies wires storage, services and handlers from config.
func SetupDependencies(cfg *config.Config) (*Dependencies, error) {
	var storage Storage
	var err error
	switch cfg.Public.Storage.Driver {
	case "memory":
		storage = memory.New()
		logger.Log.Warn("using in-memory storage, state is lost on restart")
	default:
		storage, err = pg.New(cfg)
		if err != nil {
			return nil, err
		}
	}

	blobs, err := fs.New(cfg.Public.Storage.ContentDir)
	if err != nil {
		return nil, err
	}

	// The digest is derived state. Rebuilding it from the catalog at startup
	// makes a restart indistinguishable from continuous operation.
	state := service.NewState()
	active, err := storage.ActiveFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to load active files for state rebuild: %w", err)
	}
	state.Rebuild(active)
	digest, count := state.Digest()
	logger.Log.Info("state digest rebuilt", "files", count, "digest", digest)

	tokens := jwt.New(cfg.JwtKey(), cfg.RefreshKey(), cfg.JwtTTL(), cfg.RefreshTTL())

	auth := service.NewAuth(storage, tokens, cfg.Private.BcryptCost)
	files := service.NewFiles(storage, blobs, state)
	sync := service.NewSync(storage, &cfg.Public)
	albums := service.NewAlbums(storage, storage)
	users := service.NewUsers(storage, cfg.Public.Storage.ContentDir)

	thumbDir := cfg.Public.Storage.ThumbnailDir
	if thumbDir == "" {
		thumbDir = filepath.Join(cfg.Public.Storage.ContentDir, ".thumbnails")
	}
	thumbs, err := service.NewThumbnails(storage, blobs, thumbDir, 4)
	if err != nil {
		return nil, err
	}

	gc := service.NewGarbageCollector(storage, blobs, cfg.Public.GC.SafetyThreshold)

	h := handler.New(auth, files, sync, state, albums, users, thumbs, storage, cfg)

	return &Dependencies{
		Storage: storage,
		Blobs:   blobs,
		State:   state,
		GC:      gc,
		Tokens:  tokens,
		Handler: h,
		Config:  cfg,
	}, nil
}
