package handler

import (
	"context"

	"github.com/driftvault/driftvault/internal/service"
	"github.com/driftvault/driftvault/shared/config"
)

// Pinger reports whether the backing storage can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	auth   *service.Auth
	files  *service.Files
	sync   *service.Sync
	state  *service.State
	albums *service.Albums
	users  *service.Users
	thumbs *service.Thumbnails
	health Pinger
	cfg    *config.Config
}

func New(
	auth *service.Auth,
	files *service.Files,
	sync *service.Sync,
	state *service.State,
	albums *service.Albums,
	users *service.Users,
	thumbs *service.Thumbnails,
	health Pinger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		auth:   auth,
		files:  files,
		sync:   sync,
		state:  state,
		albums: albums,
		users:  users,
		thumbs: thumbs,
		health: health,
		cfg:    cfg,
	}
}
