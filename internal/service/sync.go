package service

import (
	"github.com/driftvault/driftvault/shared/config"
	"github.com/driftvault/driftvault/shared/domain"
	"github.com/driftvault/driftvault/shared/errors"
)

// LedgerReader is the read-only ledger surface used to serve sync pages.
type LedgerReader interface {
	ChangesSince(since int64, limit int) ([]domain.LedgerRecord, error)
	HighWater() (int64, error)
}

type Sync struct {
	ledger LedgerReader
	cfg    *config.Public
}

func NewSync(ledger LedgerReader, cfg *config.Public) *Sync {
	return &Sync{ledger: ledger, cfg: cfg}
}

// Since returns the changes after the given cursor as a page. Records for the
// same file collapse to the latest one within the page, so a client replaying
// the page converges on the same catalog state as replaying every record.
// NextVersion advances to the version of the last raw record consumed; on an
// empty page it reports the ledger's high water so the cursor never moves
// backwards.
func (s *Sync) Since(since int64, limit int) (*domain.SyncPage, error) {
	if since < 0 {
		return nil, errors.InvalidArgument("since must be >= 0")
	}
	if limit <= 0 {
		return nil, errors.InvalidArgument("limit must be > 0")
	}
	if limit > s.cfg.Sync.MaxLimit {
		limit = s.cfg.Sync.MaxLimit
	}

	records, err := s.ledger.ChangesSince(since, limit)
	if err != nil {
		return nil, err
	}

	page := &domain.SyncPage{
		Items:      []domain.File{},
		DeletedIds: []domain.FileId{},
	}

	if len(records) == 0 {
		highWater, err := s.ledger.HighWater()
		if err != nil {
			return nil, err
		}
		page.NextVersion = max(highWater, since)
		return page, nil
	}

	// Latest record per file wins; order of first appearance is kept so the
	// page stays version-ordered for clients that care.
	latest := make(map[domain.FileId]domain.LedgerRecord, len(records))
	var order []domain.FileId
	for _, rec := range records {
		if _, seen := latest[rec.FileId]; !seen {
			order = append(order, rec.FileId)
		}
		latest[rec.FileId] = rec
	}

	for _, id := range order {
		rec := latest[id]
		switch rec.Kind {
		case domain.ChangeTombstone:
			page.DeletedIds = append(page.DeletedIds, id)
		default:
			if rec.Payload != nil {
				page.Items = append(page.Items, *rec.Payload)
			}
		}
	}

	page.NextVersion = records[len(records)-1].Version
	return page, nil
}
