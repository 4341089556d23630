package actionlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/weddingplanner-backend/pkg/db"
	"github.com/angelmondragon/weddingplanner-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
)

const appendAttempts = 3

// SQLLog stores entries in action_log_entries, ordered by seq within a slot.
type SQLLog struct {
	db         *db.Client
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

func NewSQLLog(client *db.Client, maxEntries int, ttl time.Duration) *SQLLog {
	return &SQLLog{db: client, maxEntries: maxEntries, ttl: ttl, now: time.Now}
}

func (l *SQLLog) live(tx *gorm.DB, slot string, now time.Time) *gorm.DB {
	return tx.Model(&models.ActionLogEntry{}).
		Where("slot = ?", slot).
		Where("(expires_at IS NULL OR expires_at > ?)", now)
}

func (l *SQLLog) expiry(now time.Time) *time.Time {
	if l.ttl <= 0 {
		return nil
	}
	t := now.Add(l.ttl).UTC()
	return &t
}

func (l *SQLLog) Append(ctx context.Context, slot string, action QueuedAction) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	var err error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		err = l.db.WithTx(ctx, func(tx *gorm.DB) error {
			return l.appendTx(tx, slot, action)
		})
		// concurrent appends may race for the same seq
		if err == nil || !pkgerrors.IsUniqueViolation(err) {
			break
		}
	}
	if err != nil && !errors.Is(err, ErrLogFull) {
		return fmt.Errorf("append action log: %w", err)
	}
	return err
}

func (l *SQLLog) appendTx(tx *gorm.DB, slot string, action QueuedAction) error {
	now := l.now().UTC()
	if err := tx.Where("slot = ? AND expires_at IS NOT NULL AND expires_at <= ?", slot, now).
		Delete(&models.ActionLogEntry{}).Error; err != nil {
		return err
	}

	var count int64
	if err := l.live(tx, slot, now).Count(&count).Error; err != nil {
		return err
	}
	if l.maxEntries > 0 && count >= int64(l.maxEntries) {
		return ErrLogFull
	}

	var maxSeq sql.NullInt64
	if err := tx.Model(&models.ActionLogEntry{}).
		Where("slot = ?", slot).
		Select("MAX(seq)").
		Scan(&maxSeq).Error; err != nil {
		return err
	}
	next := int64(1)
	if maxSeq.Valid {
		next = maxSeq.Int64 + 1
	}

	expires := l.expiry(now)
	entry := models.ActionLogEntry{
		Slot:       slot,
		Seq:        next,
		ActionID:   action.ID,
		Kind:       action.Kind,
		Payload:    action.Payload,
		EnqueuedAt: action.EnqueuedAt.UTC(),
		ExpiresAt:  expires,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	// sliding expiry, same as the redis list TTL
	return tx.Model(&models.ActionLogEntry{}).
		Where("slot = ?", slot).
		Update("expires_at", expires).Error
}

func (l *SQLLog) ReadAll(ctx context.Context, slot string) ([]QueuedAction, error) {
	if err := checkSlot(slot); err != nil {
		return nil, err
	}
	var rows []models.ActionLogEntry
	if err := l.live(l.db.DB().WithContext(ctx), slot, l.now().UTC()).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read action log: %w", err)
	}
	return toActions(rows), nil
}

func (l *SQLLog) Clear(ctx context.Context, slot string) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	if err := l.db.DB().WithContext(ctx).
		Where("slot = ?", slot).
		Delete(&models.ActionLogEntry{}).Error; err != nil {
		return fmt.Errorf("clear action log: %w", err)
	}
	return nil
}

func (l *SQLLog) IsEmpty(ctx context.Context, slot string) (bool, error) {
	if err := checkSlot(slot); err != nil {
		return false, err
	}
	var seqs []int64
	if err := l.live(l.db.DB().WithContext(ctx), slot, l.now().UTC()).
		Limit(1).
		Pluck("seq", &seqs).Error; err != nil {
		return false, fmt.Errorf("probe action log: %w", err)
	}
	return len(seqs) == 0, nil
}

func (l *SQLLog) Remove(ctx context.Context, slot string, n int, retained ...QueuedAction) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	if n <= 0 && len(retained) == 0 {
		return nil
	}
	err := l.db.WithTx(ctx, func(tx *gorm.DB) error {
		now := l.now().UTC()
		if n > 0 {
			var seqs []int64
			if err := l.live(tx, slot, now).
				Order("seq ASC").
				Limit(n).
				Pluck("seq", &seqs).Error; err != nil {
				return err
			}
			if len(seqs) > 0 {
				if err := tx.Where("slot = ? AND seq <= ?", slot, seqs[len(seqs)-1]).
					Delete(&models.ActionLogEntry{}).Error; err != nil {
					return err
				}
			}
		}
		if len(retained) == 0 {
			return nil
		}

		var minSeq sql.NullInt64
		if err := tx.Model(&models.ActionLogEntry{}).
			Where("slot = ?", slot).
			Select("MIN(seq)").
			Scan(&minSeq).Error; err != nil {
			return err
		}
		head := int64(1)
		if minSeq.Valid {
			head = minSeq.Int64
		}
		start := head - int64(len(retained))
		expires := l.expiry(now)
		rows := make([]models.ActionLogEntry, 0, len(retained))
		for i, action := range retained {
			rows = append(rows, models.ActionLogEntry{
				Slot:       slot,
				Seq:        start + int64(i),
				ActionID:   action.ID,
				Kind:       action.Kind,
				Payload:    action.Payload,
				EnqueuedAt: action.EnqueuedAt.UTC(),
				ExpiresAt:  expires,
			})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("trim action log: %w", err)
	}
	return nil
}

func toActions(rows []models.ActionLogEntry) []QueuedAction {
	out := make([]QueuedAction, 0, len(rows))
	for _, row := range rows {
		out = append(out, QueuedAction{
			ID:         row.ActionID,
			Kind:       row.Kind,
			Payload:    row.Payload,
			EnqueuedAt: row.EnqueuedAt,
		})
	}
	return out
}

// PurgeExpired deletes entries whose expiry is at or before cutoff and
// returns how many rows went. Expired entries are already invisible to
// reads; this only reclaims the space.
func (l *SQLLog) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := l.db.DB().WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", cutoff.UTC()).
		Delete(&models.ActionLogEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge expired actions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
