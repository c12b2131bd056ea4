package handler

import (
	"archive/zip"
	"io"
	"net/http"
	"os"

	"github.com/driftvault/driftvault/internal/middleware"
	"github.com/driftvault/driftvault/shared/api"
	"github.com/driftvault/driftvault/shared/logger"
	"github.com/driftvault/driftvault/shared/utils"
)

// ThumbnailBatch streams a zip archive of thumbnails for the requested files.
// Files the caller cannot read or that cannot be rendered are skipped rather
// than failing the whole archive.
func (h *Handler) ThumbnailBatch(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)

	var req api.ThumbnailBatchRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="thumbnails.zip"`)

	zw := zip.NewWriter(w)
	defer zw.Close()

	for _, id := range req.FileIds {
		if r.Context().Err() != nil {
			return
		}

		path, err := h.thumbs.Generate(id, user.Id)
		if err != nil {
			logger.Log.Debug("skipping thumbnail", "id", id, "error", err)
			continue
		}

		src, err := os.Open(path)
		if err != nil {
			logger.Log.Error("failed to open cached thumbnail", "id", id, "error", err)
			continue
		}

		entry, err := zw.Create(id + ".jpg")
		if err != nil {
			src.Close()
			return // response is already partially written
		}
		if _, err := io.Copy(entry, src); err != nil {
			src.Close()
			return
		}
		src.Close()
	}
}
