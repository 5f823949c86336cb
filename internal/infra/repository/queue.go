package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quillsocial/quill/internal/domain"
	"github.com/quillsocial/quill/internal/infra/database/models"
)

type QueueRepository struct {
	db *gorm.DB
}

func NewQueueRepository(db *gorm.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Enqueue inserts a pending item. An insert failure is surfaced to the
// caller; a silently dropped enqueue would break delivery guarantees.
func (r *QueueRepository) Enqueue(ctx context.Context, frame []byte, transport string) (int64, error) {
	row := models.QueueItem{
		Frame:     frame,
		Transport: transport,
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		return 0, errors.Wrapf(err, "enqueue to %s", transport)
	}
	return row.ID, nil
}

// ClaimNext claims the oldest unclaimed item among transports, skipping
// ignored ones. Select and claim run in one transaction under FOR UPDATE
// SKIP LOCKED, so concurrent consumers never race for the same row.
// Returns domain.ErrNoWork when nothing is claimable.
func (r *QueueRepository) ClaimNext(ctx context.Context, transports, ignored []string) (domain.QueueItem, error) {

	var row models.QueueItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {

		q := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("claimed IS NULL")
		if len(transports) > 0 {
			q = q.Where("transport IN ?", transports)
		}
		if len(ignored) > 0 {
			q = q.Where("transport NOT IN ?", ignored)
		}

		err := q.Order("created ASC, id ASC").Take(&row).Error
		if err != nil {
			return err
		}

		now := time.Now()
		err = tx.Model(&models.QueueItem{}).
			Where("id = ?", row.ID).
			Update("claimed", now).Error
		if err != nil {
			return err
		}
		row.Claimed = &now
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.QueueItem{}, domain.ErrNoWork
		}
		return domain.QueueItem{}, errors.Wrap(err, "claim next")
	}

	return queueItemToDomain(row), nil
}

// Release returns a claimed item to pending for retry.
func (r *QueueRepository) Release(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Where("id = ?", id).
		Update("claimed", nil).Error
	return errors.Wrapf(err, "release item %d", id)
}

// Delete retires an item. Returns whether the row still held a claim, so
// the consumer can warn about retiring an unclaimed item.
func (r *QueueRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var row models.QueueItem
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, domain.NotFoundError{Resource: "queue item"}
		}
		return false, errors.Wrapf(err, "load item %d", id)
	}

	err = r.db.WithContext(ctx).Delete(&models.QueueItem{}, "id = ?", id).Error
	if err != nil {
		return false, errors.Wrapf(err, "delete item %d", id)
	}
	return row.Claimed != nil, nil
}

// ReleaseStale returns items whose claim lease expired to pending. A
// consumer that died mid-item would otherwise leave it claimed forever.
func (r *QueueRepository) ReleaseStale(ctx context.Context, lease time.Duration) (int64, error) {
	cutoff := time.Now().Add(-lease)
	res := r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Where("claimed IS NOT NULL AND claimed < ?", cutoff).
		Update("claimed", nil)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "release stale claims")
	}
	return res.RowsAffected, nil
}

// Stats reports pending/claimed depth per transport.
func (r *QueueRepository) Stats(ctx context.Context) ([]domain.QueueStats, error) {
	type statRow struct {
		Transport string
		Pending   int64
		Claimed   int64
	}
	var rows []statRow
	err := r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Select("transport, COUNT(*) FILTER (WHERE claimed IS NULL) AS pending, COUNT(*) FILTER (WHERE claimed IS NOT NULL) AS claimed").
		Group("transport").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "queue stats")
	}

	out := make([]domain.QueueStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.QueueStats{
			Transport: row.Transport,
			Pending:   row.Pending,
			Claimed:   row.Claimed,
		})
	}
	return out, nil
}

func queueItemToDomain(row models.QueueItem) domain.QueueItem {
	return domain.QueueItem{
		ID:        row.ID,
		Frame:     row.Frame,
		Transport: row.Transport,
		Created:   row.Created,
		Claimed:   row.Claimed,
	}
}
