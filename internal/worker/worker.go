package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-orchestrator/internal/domain"
	"chat-orchestrator/internal/usecase"
)

const (
	defaultPollInterval = 5 * time.Second
	jobTimeout          = 120 * time.Second
	initialBackoff      = 1 * time.Second
	maxBackoff          = 5 * time.Minute
)

// IndexExecutor runs one queued indexing job to completion.
type IndexExecutor interface {
	ExecuteJob(ctx context.Context, job *domain.IngestJob) error
}

// JobWorker drains the ingest queue in the background. Failures back off
// exponentially so a broken embedder does not get hammered.
type JobWorker struct {
	jobRepo      domain.IngestJobRepository
	indexUsecase IndexExecutor
	logger       *slog.Logger
	stopChan     chan struct{}
	pollInterval time.Duration
	backoff      time.Duration
}

func NewJobWorker(
	jobRepo domain.IngestJobRepository,
	indexUsecase IndexExecutor,
	pollInterval time.Duration,
	logger *slog.Logger,
) *JobWorker {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &JobWorker{
		jobRepo:      jobRepo,
		indexUsecase: indexUsecase,
		logger:       logger,
		stopChan:     make(chan struct{}),
		pollInterval: pollInterval,
	}
}

func (w *JobWorker) Start() {
	w.logger.Info("Starting JobWorker")
	go w.run()
}

func (w *JobWorker) Stop() {
	w.logger.Info("Stopping JobWorker")
	close(w.stopChan)
}

func (w *JobWorker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(w.pollInterval)
			}
		}
	}
}

func (w *JobWorker) processNextJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	job, err := w.jobRepo.AcquireNextJob(ctx)
	if err != nil {
		w.logger.Error("Failed to acquire next job", "error", err)
		return
	}
	if job == nil {
		return // No jobs
	}

	w.logger.Info("Processing job", "job_id", job.ID, "type", job.JobType)

	var processErr error

	switch job.JobType {
	case usecase.JobTypeIndexDocument:
		processErr = w.indexUsecase.ExecuteJob(ctx, job)
	default:
		processErr = fmt.Errorf("unknown job type: %s", job.JobType)
	}

	status := "completed"
	var errMsg *string
	if processErr != nil {
		status = "failed"
		msg := processErr.Error()
		errMsg = &msg
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.Warn("Worker backing off", "job_id", job.ID, "backoff", w.backoff, "error", processErr)
	} else {
		w.backoff = 0
		w.logger.Info("Job completed", "job_id", job.ID)
	}

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, status, errMsg); err != nil {
		w.logger.Error("Failed to update job status", "job_id", job.ID, "error", err)
	}
}

func (w *JobWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
