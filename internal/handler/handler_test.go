package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	mw "github.com/driftvault/driftvault/internal/middleware"
	"github.com/driftvault/driftvault/internal/service"
	"github.com/driftvault/driftvault/internal/storage/fs"
	"github.com/driftvault/driftvault/internal/storage/memory"
	"github.com/driftvault/driftvault/shared/api"
	"github.com/driftvault/driftvault/shared/config"
	"github.com/driftvault/driftvault/shared/domain"
	"github.com/driftvault/driftvault/shared/jwt"
	"github.com/driftvault/driftvault/shared/utils"
)

type testEnv struct {
	router     http.Handler
	storage    *memory.Storage
	tokens     jwt.TokenService
	authHeader string
	user       *domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Public: config.Public{
			Storage: config.Storage{Driver: "memory", ContentDir: t.TempDir()},
			Upload:  config.Upload{MaxFileSizeBytes: 10 << 20},
			Sync:    config.Sync{DefaultLimit: 100, MaxLimit: 1000},
		},
		Private: config.Private{BcryptCost: bcrypt.MinCost},
	}

	storage := memory.New()
	blobs, err := fs.New(t.TempDir())
	require.NoError(t, err)

	state := service.NewState()
	tokens := jwt.New("access-key", "refresh-key", time.Hour, 24*time.Hour)

	authSvc := service.NewAuth(storage, tokens, bcrypt.MinCost)
	filesSvc := service.NewFiles(storage, blobs, state)
	syncSvc := service.NewSync(storage, &cfg.Public)
	albumsSvc := service.NewAlbums(storage, storage)
	usersSvc := service.NewUsers(storage, cfg.Public.Storage.ContentDir)
	thumbsSvc, err := service.NewThumbnails(storage, blobs, t.TempDir(), 4)
	require.NoError(t, err)

	h := New(authSvc, filesSvc, syncSvc, state, albumsSvc, usersSvc, thumbsSvc, storage, cfg)

	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.Auth(tokens))
		r.Route("/files", func(r chi.Router) {
			r.Post("/upload", h.Upload)
			r.Get("/sync", h.Sync)
			r.Get("/state", h.State)
			r.Get("/{id}", h.Download)
			r.Delete("/{id}", h.Delete)
		})
		r.Route("/albums", func(r chi.Router) {
			r.Post("/", h.CreateAlbum)
			r.Get("/sync", h.SyncAlbums)
			r.Post("/{id}/files", h.AddAlbumFiles)
		})
		r.Route("/user", func(r chi.Router) {
			r.Get("/profile", h.Profile)
			r.Patch("/profile", h.UpdateProfile)
			r.Get("/quota", h.Quota)
		})
		r.Post("/thumbnails/batch", h.ThumbnailBatch)
	})

	user, err := authSvc.Register("tester@example.com", "tester", "password123")
	require.NoError(t, err)
	pair, err := tokens.NewTokenPair(*user)
	require.NoError(t, err)

	return &testEnv{
		router:     r,
		storage:    storage,
		tokens:     tokens,
		authHeader: "Bearer " + pair.AccessToken,
		user:       user,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", e.authHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, content []byte, checksum string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("originalName", "photo.png"))
	require.NoError(t, form.WriteField("mimeType", "image/png"))
	require.NoError(t, form.WriteField("creationDate", time.Now().UTC().Format(time.RFC3339)))
	part, err := form.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	return e.do(t, http.MethodPost, "/files/upload", &buf, func(r *http.Request) {
		r.Header.Set("Content-Type", form.FormDataContentType())
		if checksum != "" {
			r.Header.Set("X-SHA256-Checksum", checksum)
		}
	})
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestUploadDownloadDeleteFlow(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("picture bytes")
	checksum := utils.Sha256Hex(content)

	rec := env.upload(t, content, checksum)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	up := decode[api.UploadResponse](t, rec)
	assert.Equal(t, checksum, up.Id)
	assert.Equal(t, checksum, up.Checksum)
	assert.Equal(t, "processed", up.Status)

	t.Run("download returns the original bytes", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/files/"+up.Id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, content, rec.Body.Bytes())
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	})

	t.Run("repeated upload is idempotent", func(t *testing.T) {
		rec := env.upload(t, content, checksum)
		require.Equal(t, http.StatusOK, rec.Code)
		again := decode[api.UploadResponse](t, rec)
		assert.Equal(t, up.Id, again.Id)
	})

	t.Run("delete then download returns 404", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/files/"+up.Id, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(t, http.MethodGet, "/files/"+up.Id, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(t, http.MethodDelete, "/files/"+up.Id, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, "second delete must not find the file")
	})
}

func TestUploadValidation(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("picture bytes")

	t.Run("checksum mismatch is rejected as corrupted", func(t *testing.T) {
		rec := env.upload(t, content, "0000000000000000000000000000000000000000000000000000000000000000")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "corrupted")
	})

	t.Run("missing checksum header", func(t *testing.T) {
		rec := env.upload(t, content, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/files/upload", nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSyncAndState(t *testing.T) {
	env := newTestEnv(t)
	a := []byte("file a")
	b := []byte("file b")

	rec := env.do(t, http.MethodGet, "/files/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[api.StateResponse](t, rec)
	assert.Equal(t, 0, empty.FileCount)

	upA := decode[api.UploadResponse](t, env.upload(t, a, utils.Sha256Hex(a)))
	require.Equal(t, http.StatusOK, env.upload(t, b, utils.Sha256Hex(b)).Code)

	t.Run("full sync from zero", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/files/sync?since=0", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[api.SyncResponse](t, rec)
		require.Len(t, page.Items, 2)
		assert.Empty(t, page.DeletedIds)
		assert.Equal(t, int64(2), page.NextVersion)
	})

	t.Run("incremental sync sees only the delete", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/files/"+upA.Id, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(t, http.MethodGet, "/files/sync?since=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[api.SyncResponse](t, rec)
		assert.Empty(t, page.Items)
		assert.Equal(t, []string{upA.Id}, page.DeletedIds)
		assert.Equal(t, int64(3), page.NextVersion)
	})

	t.Run("state reflects the surviving file", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/files/state", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		st := decode[api.StateResponse](t, rec)
		assert.Equal(t, 1, st.FileCount)
		assert.NotEqual(t, empty.StateHash, st.StateHash)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/files/sync?since=-5", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(t, http.MethodGet, "/files/sync?since=abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(t, http.MethodGet, "/files/sync?since=0&limit=0", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAlbumEndpoints(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("album photo")
	up := decode[api.UploadResponse](t, env.upload(t, content, utils.Sha256Hex(content)))

	rec := env.do(t, http.MethodPost, "/albums/", bytes.NewReader([]byte(`{"title":"Trip"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[api.CreateAlbumResponse](t, rec)
	require.NotEmpty(t, created.Id)

	t.Run("add files", func(t *testing.T) {
		body := fmt.Sprintf(`{"fileIds":[%q]}`, up.Id)
		rec := env.do(t, http.MethodPost, "/albums/"+created.Id+"/files", bytes.NewReader([]byte(body)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[api.AddAlbumFilesResponse](t, rec)
		assert.Equal(t, int64(2), resp.Version)
	})

	t.Run("unknown file id fails", func(t *testing.T) {
		body := `{"fileIds":["0000000000000000000000000000000000000000000000000000000000000000"]}`
		rec := env.do(t, http.MethodPost, "/albums/"+created.Id+"/files", bytes.NewReader([]byte(body)))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("sync lists the album", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/albums/sync", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[api.AlbumSyncResponse](t, rec)
		require.Len(t, resp.Albums, 1)
		assert.Equal(t, "Trip", resp.Albums[0].Title)
		assert.Equal(t, 1, resp.Albums[0].Count)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/albums/", bytes.NewReader([]byte(`{}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProfileAndQuota(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/user/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[api.ProfileResponse](t, rec)
	assert.Equal(t, "tester", profile.Name)
	assert.Equal(t, "tester@example.com", profile.Email)

	t.Run("rename", func(t *testing.T) {
		rec := env.do(t, http.MethodPatch, "/user/profile", bytes.NewReader([]byte(`{"name":"renamed"}`)))
		require.Equal(t, http.StatusOK, rec.Code)
		updated := decode[api.ProfileResponse](t, rec)
		assert.Equal(t, "renamed", updated.Name)
	})

	t.Run("quota counts owned bytes", func(t *testing.T) {
		content := []byte("some stored bytes")
		env.upload(t, content, utils.Sha256Hex(content))

		rec := env.do(t, http.MethodGet, "/user/quota", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		quota := decode[api.QuotaResponse](t, rec)
		assert.Equal(t, int64(len(content)), quota.OwnedBytes)
	})
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	body := `{"name":"bob","email":"bob@example.com","password":"password123"}`
	rec := env.do(t, http.MethodPost, "/auth/register", bytes.NewReader([]byte(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registered := decode[api.RegisterResponse](t, rec)
	assert.NotEmpty(t, registered.Id)
	assert.NotEmpty(t, registered.AccessToken)

	t.Run("duplicate email rejected", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/register", bytes.NewReader([]byte(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("login", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/login", bytes.NewReader([]byte(`{"email":"bob@example.com","password":"password123"}`)))
		require.Equal(t, http.StatusOK, rec.Code)
		tokens := decode[api.TokenResponse](t, rec)
		assert.NotEmpty(t, tokens.AccessToken)

		t.Run("refresh", func(t *testing.T) {
			body := fmt.Sprintf(`{"refreshToken":%q}`, tokens.RefreshToken)
			rec := env.do(t, http.MethodPost, "/auth/refresh", bytes.NewReader([]byte(body)))
			require.Equal(t, http.StatusOK, rec.Code)
			refreshed := decode[api.TokenResponse](t, rec)
			assert.NotEmpty(t, refreshed.AccessToken)
		})
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/login", bytes.NewReader([]byte(`{"email":"bob@example.com","password":"wrong"}`)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("short password rejected", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/register", bytes.NewReader([]byte(`{"name":"x","email":"x@y.z","password":"short"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
