package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/driftvault/driftvault/internal/middleware"
	"github.com/driftvault/driftvault/shared/api"
	"github.com/driftvault/driftvault/shared/utils"
)

func (h *Handler) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)

	var req api.CreateAlbumRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	id, err := h.albums.Create(user.Id, req.Title)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	utils.WriteJSON(w, api.CreateAlbumResponse{Id: id})
}

func (h *Handler) AddAlbumFiles(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	albumId := chi.URLParam(r, "id")

	var req api.AddAlbumFilesRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	version, err := h.albums.AddFiles(albumId, user.Id, req.FileIds)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, api.AddAlbumFilesResponse{Version: version})
}

func (h *Handler) SyncAlbums(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)

	albums, err := h.albums.Sync(user.Id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	out := make([]api.AlbumResponse, 0, len(albums))
	for _, album := range albums {
		out = append(out, api.AlbumResponse{Album: album, Count: len(album.FileIds)})
	}
	utils.WriteJSON(w, api.AlbumSyncResponse{Albums: out})
}
