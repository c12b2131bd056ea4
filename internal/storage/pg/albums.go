package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/driftvault/driftvault/shared/domain"
	internal_errors "github.com/driftvault/driftvault/shared/errors"
)

func (s *Storage) CreateAlbum(owner domain.UserId, title string) (domain.AlbumId, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`
	INSERT INTO albums(id, owner_id, title)
	VALUES($1, $2, $3)`, id, owner, title)
	if err != nil {
		return "", fmt.Errorf("failed to insert album: %w", err)
	}
	return id, nil
}

// AddAlbumFiles inserts membership rows, ignoring duplicates, and bumps the
// album's own version counter only when membership actually changed.
func (s *Storage) AddAlbumFiles(albumId domain.AlbumId, owner domain.UserId, fileIds []domain.FileId) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var version int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRow(`
		SELECT version FROM albums
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE`, albumId, owner).Scan(&version)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return internal_errors.NotFound("album not found")
			}
			return fmt.Errorf("failed to lock album: %w", err)
		}

		result, err := tx.Exec(`
		INSERT INTO album_files(album_id, file_id)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING`, albumId, pq.Array(fileIds))
		if err != nil {
			return fmt.Errorf("failed to insert album membership: %w", err)
		}

		added, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check membership rows: %w", err)
		}
		if added > 0 {
			if err := tx.QueryRow(`
			UPDATE albums SET version = version + 1
			WHERE id = $1
			RETURNING version`, albumId).Scan(&version); err != nil {
				return fmt.Errorf("failed to bump album version: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// AlbumsByOwner lists the caller's albums newest-first with their membership.
func (s *Storage) AlbumsByOwner(owner domain.UserId) ([]domain.Album, error) {
	rows, err := s.db.Query(`
	SELECT
		a.id,
		a.title,
		a.owner_id,
		a.version,
		a.created_at,
		COALESCE(
			ARRAY_AGG(af.file_id ORDER BY af.file_id) FILTER (WHERE af.file_id IS NOT NULL),
			'{}'
		) AS file_ids
	FROM albums a
	LEFT JOIN album_files af ON a.id = af.album_id
	WHERE a.owner_id = $1
	GROUP BY a.id
	ORDER BY a.created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var out []domain.Album
	for rows.Next() {
		var album domain.Album
		var fileIds pq.StringArray
		if err := rows.Scan(&album.Id, &album.Title, &album.OwnerId, &album.Version, &album.CreatedAt, &fileIds); err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		album.FileIds = fileIds
		out = append(out, album)
	}
	return out, rows.Err()
}
