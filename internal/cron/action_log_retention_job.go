package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/weddingplanner-backend/pkg/logger"
)

// expiredActionPurger removes deferred actions that outlived their TTL.
type expiredActionPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type ActionLogRetentionJobParams struct {
	Logger *logger.Logger
	Log    expiredActionPurger
	// Grace keeps expired rows around a little longer for debugging.
	Grace time.Duration
}

func NewActionLogRetentionJob(params ActionLogRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("action log required")
	}
	grace := params.Grace
	if grace < 0 {
		grace = 0
	}
	return &actionLogRetentionJob{
		logg:  params.Logger,
		log:   params.Log,
		grace: grace,
		now:   time.Now,
	}, nil
}

type actionLogRetentionJob struct {
	logg  *logger.Logger
	log   expiredActionPurger
	grace time.Duration
	now   func() time.Time
}

func (j *actionLogRetentionJob) Name() string { return "action-log-retention" }

func (j *actionLogRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	deleted, err := j.log.PurgeExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("action log retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "action log retention cleanup complete")
	return nil
}
