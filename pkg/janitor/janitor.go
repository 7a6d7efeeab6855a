// Package janitor purges pending relations nobody acted on.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/tenancy/pkg/observability"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

// PurgeRecorder counts purged rows
type PurgeRecorder interface {
	RecordPurge(rows int64)
}

// Janitor deletes RequestToJoin and InvitationToUser rows older than ttl
type Janitor struct {
	relations storage.RelationRepository
	ttl       time.Duration
	recorder  PurgeRecorder
	logger    *observability.Logger
	now       func() time.Time
}

func New(relations storage.RelationRepository, ttl time.Duration, recorder PurgeRecorder, logger *observability.Logger) *Janitor {
	return &Janitor{
		relations: relations,
		ttl:       ttl,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// RunOnce purges every pending relation created before now minus ttl
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.ttl)

	n, err := j.relations.DeletePendingBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge pending relations: %w", err)
	}
	if j.recorder != nil {
		j.recorder.RecordPurge(n)
	}
	j.logger.WithFields(map[string]interface{}{
		"deleted": n,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("purged pending relations")
	return n, nil
}

// Run schedules RunOnce and blocks until ctx is cancelled, then waits for a
// purge in flight to finish.
func (j *Janitor) Run(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		defer observability.RecoverPanic(j.logger, "janitor")
		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.WithError(err).Error("pending relation purge failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}

	c.Start()
	j.logger.Infof("janitor started with schedule %s", schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("janitor stopped")
	return nil
}
