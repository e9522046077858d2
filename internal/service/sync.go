package service

import (
	"context"
	"errors"

	"github.com/atinyakov/auther/internal/models"
)

// ErrEmptySnapshot is returned when an upload carries no data.
var ErrEmptySnapshot = errors.New("snapshot data is empty")

// SnapshotRepository defines the persistence operations needed by the SyncService.
type SnapshotRepository interface {
	// LatestSnapshot returns the user's current snapshot, or nil.
	LatestSnapshot(ctx context.Context, userID string) (*models.Snapshot, error)
	// StoreIfNewer stores snap when it is newer than the current snapshot.
	// When it is not, the current snapshot is returned.
	StoreIfNewer(ctx context.Context, userID string, snap models.Snapshot) (bool, *models.Snapshot, error)
}

// SyncService keeps each user's latest vault snapshot. The server never
// sees vault contents, only the sealed file and its version.
type SyncService struct {
	repo SnapshotRepository
}

// NewSyncService constructs a SyncService with the provided repository.
func NewSyncService(repo SnapshotRepository) *SyncService {
	return &SyncService{repo: repo}
}

// Sync offers snap as the user's newest snapshot. If a snapshot with the
// same or a higher version is already stored, the upload is rejected and
// the stored one is returned so the client can catch up.
func (s *SyncService) Sync(ctx context.Context, userID string, snap models.Snapshot) (models.SyncResult, error) {
	if len(snap.Data) == 0 {
		return models.SyncResult{}, ErrEmptySnapshot
	}

	stored, current, err := s.repo.StoreIfNewer(ctx, userID, snap)
	if err != nil {
		return models.SyncResult{}, err
	}
	if stored {
		return models.SyncResult{Accepted: true, Version: snap.Version}, nil
	}
	if current == nil {
		return models.SyncResult{}, errors.New("snapshot rejected without a current version")
	}
	return models.SyncResult{Version: current.Version, Data: current.Data}, nil
}

// Latest returns the user's current snapshot, or nil if there is none.
func (s *SyncService) Latest(ctx context.Context, userID string) (*models.Snapshot, error) {
	return s.repo.LatestSnapshot(ctx, userID)
}
