package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"sitesmith-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dequeueTimeout = 5 * time.Second
	dequeueBackoff = time.Second
	sweepInterval  = time.Minute
	claimGrace     = 30 * time.Second

	interruptedReason = "generation interrupted by restart"
)

// GenerationWorker drains the generation queue with a fixed number of
// goroutines.
type GenerationWorker struct {
	db            *gorm.DB
	queue         *JobQueue
	orchestrator  *RevisionOrchestrator
	workers       int
	sweepInterval time.Duration
	claimGrace    time.Duration
	log           *zap.Logger
	wg            sync.WaitGroup
}

func NewGenerationWorker(db *gorm.DB, queue *JobQueue, orchestrator *RevisionOrchestrator, workers int, log *zap.Logger) *GenerationWorker {
	if workers < 1 {
		workers = 1
	}
	return &GenerationWorker{
		db:            db,
		queue:         queue,
		orchestrator:  orchestrator,
		workers:       workers,
		sweepInterval: sweepInterval,
		claimGrace:    claimGrace,
		log:           log,
	}
}

// Start launches the workers and the interrupted-job sweep. They stop taking
// new jobs once ctx is done; Wait blocks until in-flight jobs finish.
func (w *GenerationWorker) Start(ctx context.Context) {
	w.log.Info("generation worker started", zap.Int("workers", w.workers))
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.sweep(ctx)
	}()
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func(n int) {
			defer w.wg.Done()
			w.loop(ctx, n)
		}(i)
	}
}

func (w *GenerationWorker) Wait() {
	w.wg.Wait()
}

func (w *GenerationWorker) loop(ctx context.Context, n int) {
	for {
		if ctx.Err() != nil {
			return
		}
		jobID, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if errors.Is(err, ErrQueueEmpty) || ctx.Err() != nil {
				continue
			}
			w.log.Error("dequeue failed", zap.Int("worker", n), zap.Error(err))
			select {
			case <-time.After(dequeueBackoff):
			case <-ctx.Done():
			}
			continue
		}
		w.Process(context.WithoutCancel(ctx), jobID)
	}
}

// Process claims a pending job and runs it to a terminal state. Jobs that are
// already claimed or finished are skipped.
func (w *GenerationWorker) Process(ctx context.Context, jobID uint) {
	now := time.Now()
	res := w.db.WithContext(ctx).Model(&models.GenerationJob{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     models.JobStatusProcessing,
			"started_at": now,
		})
	if res.Error != nil {
		w.log.Error("failed to claim job", zap.Uint("job_id", jobID), zap.Error(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		w.log.Warn("job not pending, skipping", zap.Uint("job_id", jobID))
		return
	}

	var job models.GenerationJob
	if err := w.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		w.log.Error("failed to load job", zap.Uint("job_id", jobID), zap.Error(err))
		return
	}

	w.log.Info("processing generation job", zap.Uint("job_id", job.ID), zap.String("project_id", job.ProjectID))
	if err := w.orchestrator.RunCreation(ctx, &job); err != nil {
		if errors.Is(err, ErrJobFinished) {
			w.log.Warn("job finished elsewhere, dropping", zap.Uint("job_id", job.ID))
			return
		}
		w.log.Warn("generation job failed", zap.Uint("job_id", job.ID), zap.Error(err))
	}
}

// Recover re-queues pending jobs and fails jobs left processing by a previous
// run, refunding their charge.
func (w *GenerationWorker) Recover(ctx context.Context) error {
	var pending []models.GenerationJob
	if err := w.db.WithContext(ctx).
		Where("status = ?", models.JobStatusPending).
		Order("id asc").
		Find(&pending).Error; err != nil {
		return err
	}
	for i := range pending {
		if err := w.queue.Enqueue(ctx, pending[i].ID); err != nil {
			return err
		}
	}
	if len(pending) > 0 {
		w.log.Info("re-queued pending generation jobs", zap.Int("count", len(pending)))
	}
	return w.abandonInterrupted(ctx)
}

// abandonInterrupted fails and refunds processing jobs nobody is running. A
// job whose project is still locked belongs to a live instance, or to a dead
// one whose lock has not expired yet; the periodic sweep picks those up later.
// Jobs claimed within claimGrace are left for their worker to lock.
func (w *GenerationWorker) abandonInterrupted(ctx context.Context) error {
	cutoff := time.Now().Add(-w.claimGrace)
	var jobs []models.GenerationJob
	if err := w.db.WithContext(ctx).
		Where("status = ?", models.JobStatusProcessing).
		Where("started_at IS NULL OR started_at <= ?", cutoff).
		Order("id asc").
		Find(&jobs).Error; err != nil {
		return err
	}

	var abandoned, running int
	for i := range jobs {
		err := w.orchestrator.AbandonCreation(ctx, &jobs[i], interruptedReason)
		switch {
		case errors.Is(err, ErrProjectBusy):
			running++
		case errors.Is(err, ErrJobFinished):
		default:
			abandoned++
		}
	}
	if abandoned > 0 || running > 0 {
		w.log.Info("swept interrupted generation jobs",
			zap.Int("abandoned", abandoned),
			zap.Int("still_running", running))
	}
	return nil
}

func (w *GenerationWorker) sweep(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.abandonInterrupted(ctx); err != nil {
				w.log.Error("interrupted job sweep failed", zap.Error(err))
			}
		}
	}
}
