package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartSnapshotCleaner deletes superseded snapshots older than retention,
// once per interval, until ctx is done. The latest snapshot of a user is
// never superseded and so never deleted.
func StartSnapshotCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention).Unix()
				res, err := db.ExecContext(ctx, `
                    DELETE FROM snapshots
                     WHERE superseded = true
                       AND created_at < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to clean superseded snapshots", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned superseded snapshots", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
