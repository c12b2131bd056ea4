package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/driftvault/driftvault/shared/domain"
	internal_errors "github.com/driftvault/driftvault/shared/errors"
)

// The ledger_version row is the single serialization point: every append
// increments it under a row lock inside the same transaction that writes the
// catalog row and the change record, so version assignment is linear and a
// version never becomes visible before its catalog state.

// AppendUpsert writes or revives a catalog row and appends an upsert record.
// The assigned version is stored into file.Version.
func (s *Storage) AppendUpsert(file *domain.File) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var version int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRow("UPDATE ledger_version SET version = version + 1 RETURNING version").Scan(&version); err != nil {
			return fmt.Errorf("failed to advance ledger version: %w", err)
		}

		file.Version = version
		file.Status = domain.FileProcessed

		_, err := tx.Exec(`
		INSERT INTO files(id, original_name, mime_type, size, creation_date, checksum, owner_id, status, version)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			original_name = EXCLUDED.original_name,
			mime_type = EXCLUDED.mime_type,
			size = EXCLUDED.size,
			creation_date = EXCLUDED.creation_date,
			owner_id = EXCLUDED.owner_id,
			status = EXCLUDED.status,
			version = EXCLUDED.version`,
			file.Id, file.OriginalName, file.MimeType, file.Size, file.CreationDate,
			file.Checksum, file.OwnerId, file.Status, version)
		if err != nil {
			return fmt.Errorf("failed to upsert file: %w", err)
		}

		return s.appendChange(tx, version, file.Id, domain.ChangeUpsert, file)
	})
	if err != nil {
		return 0, ledgerErr(err)
	}
	return version, nil
}

// AppendTombstone marks the file deleted and appends a tombstone record,
// returning the snapshot prior to deletion and the tombstone's version.
func (s *Storage) AppendTombstone(id domain.FileId, owner domain.UserId) (*domain.File, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var prior domain.File
	var version int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRow(`
		SELECT id, original_name, mime_type, size, creation_date, checksum, owner_id, status, version
		FROM files
		WHERE id = $1 AND owner_id = $2 AND status = $3
		FOR UPDATE`, id, owner, domain.FileProcessed).Scan(
			&prior.Id, &prior.OriginalName, &prior.MimeType, &prior.Size, &prior.CreationDate,
			&prior.Checksum, &prior.OwnerId, &prior.Status, &prior.Version)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return internal_errors.NotFound("file not found")
			}
			return fmt.Errorf("failed to lock file row: %w", err)
		}

		if err := tx.QueryRow("UPDATE ledger_version SET version = version + 1 RETURNING version").Scan(&version); err != nil {
			return fmt.Errorf("failed to advance ledger version: %w", err)
		}

		if _, err := tx.Exec("UPDATE files SET status = $1, version = $2 WHERE id = $3",
			domain.FileDeleted, version, id); err != nil {
			return fmt.Errorf("failed to tombstone file: %w", err)
		}

		return s.appendChange(tx, version, id, domain.ChangeTombstone, nil)
	})
	if err != nil {
		return nil, 0, ledgerErr(err)
	}
	return &prior, version, nil
}

func (s *Storage) appendChange(tx *sql.Tx, version int64, id domain.FileId, kind domain.ChangeKind, payload *domain.File) error {
	var payloadJSON any
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal change payload: %w", err)
		}
		// lib/pq encodes []byte as bytea, so jsonb takes the text form.
		payloadJSON = string(b)
	}

	_, err := tx.Exec(`
	INSERT INTO file_changes(version, file_id, kind, payload, ts)
	VALUES($1, $2, $3, $4, $5)`,
		version, id, kind, payloadJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to append ledger record: %w", err)
	}
	return nil
}

func (s *Storage) GetFile(id domain.FileId) (*domain.File, error) {
	var f domain.File
	err := s.db.QueryRow(`
	SELECT id, original_name, mime_type, size, creation_date, checksum, owner_id, status, version
	FROM files
	WHERE id = $1`, id).Scan(
		&f.Id, &f.OriginalName, &f.MimeType, &f.Size, &f.CreationDate,
		&f.Checksum, &f.OwnerId, &f.Status, &f.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal_errors.NotFound("file not found")
		}
		return nil, fmt.Errorf("failed to query file: %w", err)
	}
	return &f, nil
}

// ChangesSince reads ledger records with version > since, version ascending.
func (s *Storage) ChangesSince(since int64, limit int) ([]domain.LedgerRecord, error) {
	rows, err := s.db.Query(`
	SELECT version, file_id, kind, payload, ts
	FROM file_changes
	WHERE version > $1
	ORDER BY version ASC
	LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var out []domain.LedgerRecord
	for rows.Next() {
		var rec domain.LedgerRecord
		var payload []byte
		if err := rows.Scan(&rec.Version, &rec.FileId, &rec.Kind, &payload, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan ledger record: %w", err)
		}
		if len(payload) > 0 {
			var f domain.File
			if err := json.Unmarshal(payload, &f); err != nil {
				return nil, fmt.Errorf("failed to unmarshal change payload: %w", err)
			}
			rec.Payload = &f
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Storage) HighWater() (int64, error) {
	var version int64
	if err := s.db.QueryRow("SELECT version FROM ledger_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read ledger high water: %w", err)
	}
	return version, nil
}

func (s *Storage) ActiveFiles() ([]domain.File, error) {
	rows, err := s.db.Query(`
	SELECT id, original_name, mime_type, size, creation_date, checksum, owner_id, status, version
	FROM files
	WHERE status = $1`, domain.FileProcessed)
	if err != nil {
		return nil, fmt.Errorf("failed to query active files: %w", err)
	}
	defer rows.Close()

	var out []domain.File
	for rows.Next() {
		var f domain.File
		if err := rows.Scan(&f.Id, &f.OriginalName, &f.MimeType, &f.Size, &f.CreationDate,
			&f.Checksum, &f.OwnerId, &f.Status, &f.Version); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Storage) OwnedBytes(owner domain.UserId) (int64, error) {
	var total int64
	err := s.db.QueryRow(`
	SELECT COALESCE(SUM(size), 0)
	FROM files
	WHERE owner_id = $1 AND status = $2`, owner, domain.FileProcessed).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum owned bytes: %w", err)
	}
	return total, nil
}

// GetOwnedFiles resolves ids to processed files owned by owner; any unknown,
// deleted or foreign id fails the whole lookup with not found.
func (s *Storage) GetOwnedFiles(owner domain.UserId, ids []domain.FileId) ([]domain.File, error) {
	rows, err := s.db.Query(`
	SELECT id, original_name, mime_type, size, creation_date, checksum, owner_id, status, version
	FROM files
	WHERE owner_id = $1 AND status = $2 AND id = ANY($3)`,
		owner, domain.FileProcessed, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query owned files: %w", err)
	}
	defer rows.Close()

	found := make(map[domain.FileId]domain.File, len(ids))
	for rows.Next() {
		var f domain.File
		if err := rows.Scan(&f.Id, &f.OriginalName, &f.MimeType, &f.Size, &f.CreationDate,
			&f.Checksum, &f.OwnerId, &f.Status, &f.Version); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		found[f.Id] = f
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.File, 0, len(ids))
	for _, id := range ids {
		f, ok := found[id]
		if !ok {
			return nil, internal_errors.NotFound("file not found")
		}
		out = append(out, f)
	}
	return out, nil
}

// ledgerErr preserves client-visible errors and maps everything else to a
// retryable unavailable error: a failed append rolls back, so no partial
// write is ever observable.
func ledgerErr(err error) error {
	var statusErr *internal_errors.ErrorWithStatusCode
	if errors.As(err, &statusErr) {
		return err
	}
	return internal_errors.Unavailable("ledger unavailable")
}
