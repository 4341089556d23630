package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/weddingplanner-backend/internal/actionlog"
	"github.com/angelmondragon/weddingplanner-backend/pkg/db/dbtest"
	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	"github.com/angelmondragon/weddingplanner-backend/pkg/logger"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

type recordingPurger struct {
	cutoff time.Time
	rows   int64
	err    error
}

func (r *recordingPurger) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.cutoff = cutoff
	return r.rows, r.err
}

func TestActionLogRetentionAppliesGrace(t *testing.T) {
	purger := &recordingPurger{rows: 3}
	job, err := NewActionLogRetentionJob(ActionLogRetentionJobParams{
		Logger: logger.Nop(),
		Log:    purger,
		Grace:  time.Hour,
	})
	require.NoError(t, err)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	job.(*actionLogRetentionJob).now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-time.Hour), purger.cutoff)
	assert.Equal(t, "action-log-retention", job.Name())
}

func TestActionLogRetentionWrapsErrors(t *testing.T) {
	job, err := NewActionLogRetentionJob(ActionLogRetentionJobParams{
		Logger: logger.Nop(),
		Log:    &recordingPurger{err: errors.New("db down")},
	})
	require.NoError(t, err)
	assert.ErrorContains(t, job.Run(context.Background()), "action log retention")
}

func TestActionLogRetentionRequiresDeps(t *testing.T) {
	_, err := NewActionLogRetentionJob(ActionLogRetentionJobParams{Logger: logger.Nop()})
	assert.Error(t, err)
}

func TestActionLogRetentionPurgesExpiredRows(t *testing.T) {
	ctx := context.Background()
	client := dbtest.NewSQLite(t)
	sqlLog := actionlog.NewSQLLog(client, 10, time.Minute)
	require.NoError(t, sqlLog.Append(ctx, "device-expired-01", actionlog.QueuedAction{
		ID:         uuid.New(),
		Kind:       enums.CartActionAddToCart,
		Payload:    types.CartPayload{VendorID: 1, WeddingID: 2},
		EnqueuedAt: time.Now(),
	}))

	job, err := NewActionLogRetentionJob(ActionLogRetentionJobParams{Logger: logger.Nop(), Log: sqlLog})
	require.NoError(t, err)

	require.NoError(t, job.Run(ctx))
	entries, err := sqlLog.ReadAll(ctx, "device-expired-01")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "unexpired entries survive")

	job.(*actionLogRetentionJob).now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	require.NoError(t, job.Run(ctx))

	deleted, err := sqlLog.PurgeExpired(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted, "job already removed the expired row")
}
