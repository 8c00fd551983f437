package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"keyplane/internal/logger"
)

// runRetentionOnce deletes usage rows older than the retention window and
// returns the number of rows removed.
func runRetentionOnce(ctx context.Context, db *gorm.DB, retention time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-retention)
	res := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&UsageLog{})
	return res.RowsAffected, res.Error
}

// StartRetentionWorker launches a background goroutine that prunes
// api_key_logs once at startup and then once per day until ctx is done.
// A non-positive retentionDays disables the worker.
func StartRetentionWorker(ctx context.Context, db *gorm.DB, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	retention := time.Duration(retentionDays) * 24 * time.Hour
	log := logger.GetLogger()

	go func() {
		if n, err := runRetentionOnce(ctx, db, retention, time.Now()); err != nil {
			log.Error().Err(err).Msg("usage retention cleanup failed (startup)")
		} else if n > 0 {
			log.Info().Int64("rows", n).Msg("usage retention cleanup")
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				if n, err := runRetentionOnce(ctx, db, retention, t); err != nil {
					log.Error().Err(err).Msg("usage retention cleanup failed")
				} else if n > 0 {
					log.Info().Int64("rows", n).Msg("usage retention cleanup")
				}
			}
		}
	}()
}
