package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/auther/internal/models"
)

// ErrUnknownUser is returned when storing a snapshot for an unregistered login.
var ErrUnknownUser = errors.New("unknown user")

// PostgresSnapshotRepository stores sealed vault snapshots. Each user has at
// most one current snapshot; older ones are kept as superseded until the
// cleaner removes them.
type PostgresSnapshotRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresSnapshotRepository creates a PostgresSnapshotRepository on db.
func NewPostgresSnapshotRepository(db *sql.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{DB: db}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func latest(ctx context.Context, q queryRower, userID string, forUpdate bool) (*models.Snapshot, error) {
	query := `SELECT id, version, data FROM snapshots WHERE user_login = $1 AND superseded = false`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var snap models.Snapshot
	err := q.QueryRowContext(ctx, query, userID).Scan(&snap.ID, &snap.Version, &snap.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// LatestSnapshot returns the user's current snapshot, or nil if there is none.
func (r *PostgresSnapshotRepository) LatestSnapshot(ctx context.Context, userID string) (*models.Snapshot, error) {
	snap, err := latest(ctx, r.DB, userID, false)
	if err != nil {
		return nil, fmt.Errorf("LatestSnapshot: %w", err)
	}
	return snap, nil
}

// StoreIfNewer makes snap the user's current snapshot if its version is
// higher than the current one. It reports whether snap was stored; if not,
// it returns the current snapshot.
func (r *PostgresSnapshotRepository) StoreIfNewer(ctx context.Context, userID string, snap models.Snapshot) (bool, *models.Snapshot, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Lock the user row so concurrent uploads for one user are serialized.
	var login string
	err = tx.QueryRowContext(ctx, `SELECT login FROM users WHERE login = $1 FOR UPDATE`, userID).Scan(&login)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil, ErrUnknownUser
	}
	if err != nil {
		return false, nil, fmt.Errorf("lock user: %w", err)
	}

	current, err := latest(ctx, tx, userID, true)
	if err != nil {
		return false, nil, fmt.Errorf("check version: %w", err)
	}
	if current != nil && current.Version >= snap.Version {
		return false, current, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE snapshots SET superseded = true WHERE user_login = $1 AND superseded = false
	`, userID); err != nil {
		return false, nil, fmt.Errorf("supersede: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, user_login, version, data, created_at, superseded)
		VALUES ($1, $2, $3, $4, $5, false)
	`, uuid.NewString(), userID, snap.Version, snap.Data, time.Now().Unix()); err != nil {
		return false, nil, fmt.Errorf("insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, nil, fmt.Errorf("commit: %w", err)
	}
	return true, nil, nil
}
