package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/driftvault/driftvault/internal/middleware"
	"github.com/driftvault/driftvault/internal/service"
	"github.com/driftvault/driftvault/shared/api"
	internal_errors "github.com/driftvault/driftvault/shared/errors"
	"github.com/driftvault/driftvault/shared/utils"
	"github.com/driftvault/driftvault/shared/validation"
)

const checksumHeader = "X-SHA256-Checksum"

// multipartOverhead leaves room for the form fields around the file part.
const multipartOverhead = 1 << 20

// Upload ingests a multipart upload. The file part is accompanied by form
// fields (originalName, mimeType, creationDate) and the declared sha256 in the
// X-SHA256-Checksum header.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)

	maxSize := validation.CalculateMaxRequestSize(h.cfg.Public.Upload.MaxFileSizeBytes, multipartOverhead)
	if err := validation.ValidateAndParseMultipart(r, w, maxSize); err != nil {
		utils.WriteErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{
			Message:    "payload too large",
			StatusCode: http.StatusRequestEntityTooLarge,
		})
		return
	}

	declared := r.Header.Get(checksumHeader)
	if declared == "" {
		utils.WriteErrorAndStatusCode(w, internal_errors.InvalidArgument("missing "+checksumHeader+" header"))
		return
	}

	meta := api.UploadMeta{
		CreationDate: r.FormValue("creationDate"),
		MimeType:     r.FormValue("mimeType"),
		OriginalName: r.FormValue("originalName"),
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(meta); err != nil {
		utils.WriteErrorAndStatusCode(w, internal_errors.InvalidArgument("required fields missing or invalid"))
		return
	}
	creationDate, err := time.Parse(time.RFC3339, meta.CreationDate)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, internal_errors.InvalidArgument("creationDate must be RFC3339"))
		return
	}

	part, _, err := r.FormFile("file")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, internal_errors.InvalidArgument(validation.ErrFileMissing.Error()))
		return
	}
	defer part.Close()

	content, err := io.ReadAll(part)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, internal_errors.InvalidArgument("failed to read file part"))
		return
	}

	file, err := h.files.Upload(r.Context(), user.Id, content, service.UploadMeta{
		OriginalName: meta.OriginalName,
		MimeType:     meta.MimeType,
		CreationDate: creationDate,
		Checksum:     declared,
	})
	if err != nil {
		if errors.Is(err, r.Context().Err()) && r.Context().Err() != nil {
			return // client is gone, nothing to write
		}
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, api.UploadResponse{Id: file.Id, Checksum: file.Checksum, Status: string(file.Status)})
}

// Download streams the stored bytes of a file owned by the caller.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	id := chi.URLParam(r, "id")

	file, content, err := h.files.Open(id, user.Id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.OriginalName))
	io.Copy(w, content)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	id := chi.URLParam(r, "id")

	if err := h.files.Delete(id, user.Id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sync serves a page of catalog changes after the client's cursor.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	since, err := queryInt64(r, "since", 0)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, internal_errors.InvalidArgument("since must be an integer"))
		return
	}
	limit, err := queryInt64(r, "limit", int64(h.cfg.Public.Sync.DefaultLimit))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, internal_errors.InvalidArgument("limit must be an integer"))
		return
	}

	page, err := h.sync.Since(since, int(limit))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, api.SyncResponse{
		Items:       page.Items,
		DeletedIds:  page.DeletedIds,
		NextVersion: page.NextVersion,
	})
}

// State reports the order-independent digest of the active catalog, letting
// clients detect drift with a single comparison.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	digest, count := h.state.Digest()
	utils.WriteJSON(w, api.StateResponse{StateHash: digest, FileCount: count})
}

func queryInt64(r *http.Request, name string, fallback int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
