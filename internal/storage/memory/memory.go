// Package memory holds the catalog, ledger, users and albums in process
// memory. It implements the same storage surface as the pg backend and is the
// reference for the ledger semantics: one mutex is the single serialization
// point for version assignment, so appends are linearizable and a version is
// never visible before its catalog row.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftvault/driftvault/shared/domain"
	internal_errors "github.com/driftvault/driftvault/shared/errors"
)

type Storage struct {
	mu      sync.Mutex
	version int64
	files   map[domain.FileId]*domain.File
	records []domain.LedgerRecord
	users   map[domain.UserId]*domain.Credentials
	byEmail map[string]domain.UserId
	albums  map[domain.AlbumId]*albumRow
}

type albumRow struct {
	album   domain.Album
	members map[domain.FileId]bool
}

func New() *Storage {
	return &Storage{
		files:   make(map[domain.FileId]*domain.File),
		users:   make(map[domain.UserId]*domain.Credentials),
		byEmail: make(map[string]domain.UserId),
		albums:  make(map[domain.AlbumId]*albumRow),
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Storage) Cleanup() error {
	return nil
}

// --- files: catalog + ledger ---

// AppendUpsert assigns the next version, writes the catalog row and the
// ledger record atomically, and returns the assigned version.
func (s *Storage) AppendUpsert(file *domain.File) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++
	file.Version = s.version
	file.Status = domain.FileProcessed

	row := *file
	s.files[file.Id] = &row

	snapshot := row
	s.records = append(s.records, domain.LedgerRecord{
		Version:   s.version,
		FileId:    file.Id,
		Kind:      domain.ChangeUpsert,
		Payload:   &snapshot,
		Timestamp: time.Now().UTC(),
	})

	return s.version, nil
}

// AppendTombstone marks the file deleted, keeping the catalog row, and
// appends a tombstone record. Returns the snapshot prior to deletion and the
// tombstone's version. Unknown, already-deleted and foreign files all report
// not found.
func (s *Storage) AppendTombstone(id domain.FileId, owner domain.UserId) (*domain.File, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.files[id]
	if !ok || row.Status != domain.FileProcessed || row.OwnerId != owner {
		return nil, 0, internal_errors.NotFound("file not found")
	}

	prior := *row

	s.version++
	row.Status = domain.FileDeleted
	row.Version = s.version

	s.records = append(s.records, domain.LedgerRecord{
		Version:   s.version,
		FileId:    id,
		Kind:      domain.ChangeTombstone,
		Timestamp: time.Now().UTC(),
	})

	return &prior, s.version, nil
}

func (s *Storage) GetFile(id domain.FileId) (*domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.files[id]
	if !ok {
		return nil, internal_errors.NotFound("file not found")
	}
	snapshot := *row
	return &snapshot, nil
}

func (s *Storage) ChangesSince(since int64, limit int) ([]domain.LedgerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// records are version-ascending by construction
	start := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].Version > since
	})

	end := start + limit
	if end > len(s.records) {
		end = len(s.records)
	}

	out := make([]domain.LedgerRecord, 0, end-start)
	for _, rec := range s.records[start:end] {
		cp := rec
		if rec.Payload != nil {
			payload := *rec.Payload
			cp.Payload = &payload
		}
		out = append(out, cp)
	}
	return out, nil
}

func (s *Storage) HighWater() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, nil
}

// ActiveFiles returns every processed file, used to rebuild derived state.
func (s *Storage) ActiveFiles() ([]domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.File
	for _, row := range s.files {
		if row.Status == domain.FileProcessed {
			out = append(out, *row)
		}
	}
	return out, nil
}

// OwnedBytes sums the sizes of the caller's processed files. Content is
// deduplicated so these are unique bytes.
func (s *Storage) OwnedBytes(owner domain.UserId) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, row := range s.files {
		if row.OwnerId == owner && row.Status == domain.FileProcessed {
			total += row.Size
		}
	}
	return total, nil
}

// GetOwnedFiles resolves ids to files owned by owner. If any id is unknown,
// deleted or foreign the whole call reports not found, mirroring the
// all-or-nothing ownership check of album and thumbnail operations.
func (s *Storage) GetOwnedFiles(owner domain.UserId, ids []domain.FileId) ([]domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.File, 0, len(ids))
	for _, id := range ids {
		row, ok := s.files[id]
		if !ok || row.Status != domain.FileProcessed || row.OwnerId != owner {
			return nil, internal_errors.NotFound("file not found")
		}
		out = append(out, *row)
	}
	return out, nil
}

// --- users ---

func (s *Storage) CreateUser(creds *domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[creds.Email]; taken {
		return internal_errors.InvalidArgument("user already exists")
	}
	for _, u := range s.users {
		if u.Name == creds.Name {
			return internal_errors.InvalidArgument("username is already taken")
		}
	}

	cp := *creds
	s.users[creds.Id] = &cp
	s.byEmail[creds.Email] = creds.Id
	return nil
}

func (s *Storage) GetUserByEmail(email string) (*domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, internal_errors.NotFound("user not found")
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *Storage) GetUser(id domain.UserId) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, ok := s.users[id]
	if !ok {
		return nil, internal_errors.NotFound("user not found")
	}
	user := creds.User
	return &user, nil
}

func (s *Storage) UpdateUserName(id domain.UserId, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, ok := s.users[id]
	if !ok {
		return internal_errors.NotFound("user not found")
	}
	creds.Name = name
	return nil
}

// --- albums ---

func (s *Storage) CreateAlbum(owner domain.UserId, title string) (domain.AlbumId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.albums[id] = &albumRow{
		album: domain.Album{
			Id:        id,
			Title:     title,
			OwnerId:   owner,
			Version:   1,
			CreatedAt: time.Now().UTC(),
		},
		members: make(map[domain.FileId]bool),
	}
	return id, nil
}

// AddAlbumFiles adds membership, ignoring duplicates. The album version is
// bumped only when membership actually changed.
func (s *Storage) AddAlbumFiles(albumId domain.AlbumId, owner domain.UserId, fileIds []domain.FileId) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.albums[albumId]
	if !ok || row.album.OwnerId != owner {
		return 0, internal_errors.NotFound("album not found")
	}

	added := 0
	for _, id := range fileIds {
		if !row.members[id] {
			row.members[id] = true
			added++
		}
	}
	if added > 0 {
		row.album.Version++
	}
	return row.album.Version, nil
}

func (s *Storage) AlbumsByOwner(owner domain.UserId) ([]domain.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Album
	for _, row := range s.albums {
		if row.album.OwnerId != owner {
			continue
		}
		album := row.album
		album.FileIds = make([]domain.FileId, 0, len(row.members))
		for id := range row.members {
			album.FileIds = append(album.FileIds, id)
		}
		sort.Strings(album.FileIds)
		out = append(out, album)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
