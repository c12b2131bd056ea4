package service

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/driftvault/driftvault/shared/domain"
	"github.com/driftvault/driftvault/shared/errors"
	"github.com/driftvault/driftvault/shared/logger"
)

const (
	thumbnailEdge    = 300
	thumbnailQuality = 80
)

// ThumbnailCatalog resolves file ids for access checks.
type ThumbnailCatalog interface {
	GetFile(id domain.FileId) (*domain.File, error)
}

// ThumbnailSource exposes the on-disk location of stored content.
type ThumbnailSource interface {
	SourcePath(hash domain.FileId) (string, error)
}

// Thumbnails renders downscaled previews of stored images into a cache
// directory. Rendering is bounded by a semaphore so a large batch cannot
// saturate the host.
type Thumbnails struct {
	catalog  ThumbnailCatalog
	source   ThumbnailSource
	cacheDir string
	sem      chan struct{}
}

func NewThumbnails(catalog ThumbnailCatalog, source ThumbnailSource, cacheDir string, maxConcurrent int) (*Thumbnails, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail cache %s: %w", cacheDir, err)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Thumbnails{
		catalog:  catalog,
		source:   source,
		cacheDir: cacheDir,
		sem:      make(chan struct{}, maxConcurrent),
	}, nil
}

// Generate returns the cache path of the thumbnail for the given file,
// rendering it on a cache miss. Non-image content is rejected so batch
// callers can skip it.
func (t *Thumbnails) Generate(id domain.FileId, owner domain.UserId) (string, error) {
	file, err := t.catalog.GetFile(id)
	if err != nil {
		return "", err
	}
	if file.OwnerId != owner || file.Status != domain.FileProcessed {
		return "", errors.NotFound("file not found")
	}
	if !strings.HasPrefix(file.MimeType, "image/") {
		return "", errors.InvalidArgument("not an image")
	}

	cachePath := filepath.Join(t.cacheDir, id+".jpg")
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	t.sem <- struct{}{}
	defer func() { <-t.sem }()

	// Re-check after acquiring: a concurrent call may have rendered it.
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	if err := t.render(id, cachePath); err != nil {
		logger.Log.Error("thumbnail rendering failed", "id", id, "error", err)
		return "", errors.InvalidArgument("cannot render thumbnail")
	}
	thumbnailsGeneratedTotal.Inc()
	return cachePath, nil
}

func (t *Thumbnails) render(id domain.FileId, cachePath string) error {
	srcPath, err := t.source.SourcePath(id)
	if err != nil {
		return err
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	scaled := scaleDown(img, thumbnailEdge)

	tmp, err := os.CreateTemp(t.cacheDir, "thumb-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := jpeg.Encode(tmp, scaled, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, cachePath); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// scaleDown shrinks img so its longest edge is at most maxEdge, preserving the
// aspect ratio. Images already small enough are returned as-is.
func scaleDown(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}

	var dw, dh int
	if w >= h {
		dw = maxEdge
		dh = h * maxEdge / w
	} else {
		dh = maxEdge
		dw = w * maxEdge / h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
