package service

import (
	"github.com/driftvault/driftvault/shared/domain"
	"github.com/driftvault/driftvault/shared/logger"
)

// UserStorage is the persistence surface for profile and quota reads.
type UserStorage interface {
	GetUser(id domain.UserId) (*domain.User, error)
	UpdateUserName(id domain.UserId, name string) error
	OwnedBytes(owner domain.UserId) (int64, error)
}

// QuotaInfo reports disk occupancy of the volume backing the content store
// alongside the caller's own catalog footprint.
type QuotaInfo struct {
	UsedBytes  int64
	TotalBytes int64
	Percentage float64
	OwnedBytes int64
}

type Users struct {
	storage    UserStorage
	contentDir string
	diskUsage  func(path string) (used, total uint64, err error)
}

func NewUsers(storage UserStorage, contentDir string) *Users {
	return &Users{storage: storage, contentDir: contentDir, diskUsage: diskUsage}
}

func (u *Users) Profile(id domain.UserId) (*domain.User, error) {
	return u.storage.GetUser(id)
}

func (u *Users) UpdateName(id domain.UserId, name string) (*domain.User, error) {
	if err := u.storage.UpdateUserName(id, name); err != nil {
		return nil, err
	}
	return u.storage.GetUser(id)
}

func (u *Users) Quota(owner domain.UserId) (*QuotaInfo, error) {
	owned, err := u.storage.OwnedBytes(owner)
	if err != nil {
		return nil, err
	}

	used, total, err := u.diskUsage(u.contentDir)
	if err != nil {
		logger.Log.Error("failed to stat content volume", "path", u.contentDir, "error", err)
		return nil, err
	}

	info := &QuotaInfo{
		UsedBytes:  int64(used),
		TotalBytes: int64(total),
		OwnedBytes: owned,
	}
	if total > 0 {
		info.Percentage = float64(used) / float64(total) * 100
	}
	return info, nil
}
