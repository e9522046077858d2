package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/auther/internal/models"
)

var (
	// ErrNoFileKey is returned when syncing a vault that would be uploaded unsealed.
	ErrNoFileKey = errors.New("a file key is required to sync the vault")
	// ErrNoSnapshot is returned by Pull when the server holds no snapshot.
	ErrNoSnapshot = errors.New("server holds no snapshot")
)

// StartAutoSync pushes the vault every interval until ctx is done.
func StartAutoSync(ctx context.Context, client *http.Client, baseURL string, ls *LocalStorage, fileKey string, interval time.Duration, log *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := SyncWithServer(ctx, client, baseURL, ls, fileKey); err != nil {
				log.Warn("sync failed", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// SyncWithServer uploads the sealed vault. When the server rejects it
// because it holds a snapshot newer than the local vault is at that moment,
// the snapshot replaces the local vault and is saved to disk.
func SyncWithServer(ctx context.Context, client *http.Client, baseURL string, ls *LocalStorage, fileKey string) (models.SyncResult, error) {
	if fileKey == "" {
		return models.SyncResult{}, ErrNoFileKey
	}

	data, version, err := ls.encode(fileKey)
	if err != nil {
		return models.SyncResult{}, err
	}

	b, err := json.Marshal(models.Snapshot{Version: version, Data: data})
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("encode snapshot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/sync", bytes.NewReader(b))
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("sync failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return models.SyncResult{}, fmt.Errorf("server error: %s", bytes.TrimSpace(msg))
	}

	var result models.SyncResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.SyncResult{}, fmt.Errorf("decode sync result: %w", err)
	}

	if !result.Accepted && result.Version > version && len(result.Data) > 0 {
		if _, err := ls.ReplaceIfNewer(result.Data, fileKey); err != nil {
			return result, fmt.Errorf("apply server snapshot: %w", err)
		}
	}
	return result, nil
}

// Pull downloads the latest snapshot and applies it if it is newer than
// the local vault. It reports whether the local vault changed.
func Pull(ctx context.Context, client *http.Client, baseURL string, ls *LocalStorage, fileKey string) (bool, error) {
	if fileKey == "" {
		return false, ErrNoFileKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/vault", nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("pull failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, ErrNoSnapshot
	default:
		msg, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("server error: %s", bytes.TrimSpace(msg))
	}

	var snap models.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return false, fmt.Errorf("decode snapshot: %w", err)
	}

	if snap.Version <= ls.CurrentVersion() {
		return false, nil
	}
	changed, err := ls.ReplaceIfNewer(snap.Data, fileKey)
	if err != nil {
		return changed, fmt.Errorf("apply server snapshot: %w", err)
	}
	return changed, nil
}
