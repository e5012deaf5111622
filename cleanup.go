package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const cleanupTimeout = 30 * time.Second

func cleanupExpiredNotifications(ctx context.Context, ex execer) (int64, error) {
	res, err := ex.ExecContext(ctx, "DELETE FROM notifications WHERE expires_at < CURRENT_TIMESTAMP")
	if err != nil {
		return 0, fmt.Errorf("delete expired notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired notifications: %w", err)
	}
	return n, nil
}

// newCleanupScheduler registers the notification cleanup job on spec. The
// caller starts and stops the returned scheduler.
func newCleanupScheduler(spec string, ex execer, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		n, err := cleanupExpiredNotifications(ctx, ex)
		if err != nil {
			log.Error("notification cleanup failed", zap.Error(err))
			return
		}
		log.Info("notification cleanup finished", zap.Int64("deleted", n))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	return c, nil
}
