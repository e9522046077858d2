package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/auther/internal/middleware"
	"github.com/atinyakov/auther/internal/models"
	"github.com/atinyakov/auther/internal/repository"
	"github.com/atinyakov/auther/internal/service"
)

// maxSnapshotSize bounds the request body of an upload.
const maxSnapshotSize = 8 << 20

// SyncService defines the snapshot operations required by the SyncHandler.
type SyncService interface {
	// Sync offers a snapshot as the user's newest.
	Sync(ctx context.Context, userID string, snap models.Snapshot) (models.SyncResult, error)
	// Latest returns the user's current snapshot, or nil.
	Latest(ctx context.Context, userID string) (*models.Snapshot, error)
}

// SyncHandler handles HTTP requests for vault snapshot synchronization.
type SyncHandler struct {
	SyncService SyncService
	Log         *zap.Logger
}

func (h *SyncHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// Sync handles POST /api/sync requests.
// It decodes a models.Snapshot, offers it to the SyncService and writes the
// models.SyncResult as JSON. A rejected upload still answers 200 with the
// server's current snapshot.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserIDFromContext(ctx)

	var snap models.Snapshot
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSnapshotSize)).Decode(&snap); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := h.SyncService.Sync(ctx, userID, snap)
	switch {
	case errors.Is(err, service.ErrEmptySnapshot):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, repository.ErrUnknownUser):
		http.Error(w, "user not found", http.StatusForbidden)
		return
	case err != nil:
		h.logger().Error("sync failed", zap.String("user", userID), zap.Error(err))
		http.Error(w, "sync failed", http.StatusInternalServerError)
		return
	}

	if !result.Accepted {
		h.logger().Info("stale snapshot rejected",
			zap.String("user", userID),
			zap.Int64("offered", snap.Version),
			zap.Int64("current", result.Version))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// Vault handles GET /api/vault requests, returning the user's latest
// snapshot or 404 when none has been uploaded.
func (h *SyncHandler) Vault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserIDFromContext(ctx)

	snap, err := h.SyncService.Latest(ctx, userID)
	if err != nil {
		h.logger().Error("snapshot lookup failed", zap.String("user", userID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if snap == nil {
		http.Error(w, "no snapshot", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}
