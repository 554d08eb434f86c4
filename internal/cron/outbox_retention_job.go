package cron

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultPruneBatch      = 5000
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxPruner
	Retention  time.Duration
	// BatchSize caps the rows removed per transaction.
	BatchSize int
}

type outboxPruner interface {
	DeletePublishedBefore(db *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

// NewOutboxRetentionJob builds the job that prunes published outbox rows past the retention window.
func NewOutboxRetentionJob(p OutboxRetentionJobParams) (Job, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("outbox retention: logger required")
	case p.DB == nil:
		return nil, errors.New("outbox retention: db required")
	case p.Repository == nil:
		return nil, errors.New("outbox retention: repository required")
	}
	j := &outboxRetentionJob{
		logg:      p.Logger,
		db:        p.DB,
		repo:      p.Repository,
		retention: p.Retention,
		batch:     p.BatchSize,
		now:       time.Now,
	}
	if j.retention <= 0 {
		j.retention = defaultOutboxRetention
	}
	if j.batch <= 0 {
		j.batch = defaultPruneBatch
	}
	return j, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxPruner
	retention time.Duration
	batch     int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run deletes in short transactions until a batch comes back short. Rows still waiting to publish
// are never candidates.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	for ctx.Err() == nil {
		var n int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) (err error) {
			n, err = j.repo.DeletePublishedBefore(tx, cutoff, j.batch)
			return err
		})
		if err != nil {
			return err
		}
		total += n
		if n < int64(j.batch) {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"deleted": total,
	}), "published outbox rows pruned")
	return ctx.Err()
}
