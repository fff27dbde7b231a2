package usecase

import (
	"context"

	"StoryBuilder/internal/ports"
)

// Batch wires the inbox watcher with a per-input job, for watch mode.
type Batch struct {
	driver ports.InboxWatcher
	job    func(ctx context.Context, ref string)
}

// NewBatch returns a helper to start/stop recurring inbox processing.
func NewBatch(driver ports.InboxWatcher, job func(ctx context.Context, ref string)) *Batch {
	return &Batch{driver: driver, job: job}
}

// Start registers the job with the provided watcher.
func (b *Batch) Start(ctx context.Context) error {
	if b.driver == nil || b.job == nil {
		return nil
	}

	return b.driver.Start(ctx, func(ref string) {
		b.job(ctx, ref)
	})
}

// Stop gracefully tears down the underlying watcher.
func (b *Batch) Stop(ctx context.Context) error {
	if b.driver == nil {
		return nil
	}

	return b.driver.Stop(ctx)
}
