package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"chat-orchestrator/internal/domain"
	"chat-orchestrator/internal/usecase"
)

// --- stubs ---

type stubJobRepo struct {
	mu       sync.Mutex
	jobs     []*domain.IngestJob // jobs to return from AcquireNextJob (consumed FIFO)
	err      error
	statuses map[uuid.UUID]string
}

func (s *stubJobRepo) Enqueue(ctx context.Context, job *domain.IngestJob) error { return nil }

func (s *stubJobRepo) AcquireNextJob(ctx context.Context) (*domain.IngestJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if len(s.jobs) == 0 {
		return nil, nil
	}
	job := s.jobs[0]
	s.jobs = s.jobs[1:]
	return job, nil
}

func (s *stubJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses == nil {
		s.statuses = map[uuid.UUID]string{}
	}
	s.statuses[id] = status
	return nil
}

type stubIndexExecutor struct {
	mu          sync.Mutex
	capturedCtx context.Context
	returnErr   error
}

func (s *stubIndexExecutor) ExecuteJob(ctx context.Context, job *domain.IngestJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturedCtx = ctx
	return s.returnErr
}

func makeJob() *domain.IngestJob {
	return &domain.IngestJob{
		ID:      uuid.New(),
		JobType: usecase.JobTypeIndexDocument,
		Payload: map[string]interface{}{
			"owner_id":  "user-1",
			"file_name": "notes.txt",
			"body":      "Body",
		},
		Status: "processing",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// --- tests ---

func TestProcessNextJob_ContextHasTimeout(t *testing.T) {
	uc := &stubIndexExecutor{}
	repo := &stubJobRepo{jobs: []*domain.IngestJob{makeJob()}}

	w := NewJobWorker(repo, uc, 0, testLogger())
	w.processNextJob()

	uc.mu.Lock()
	defer uc.mu.Unlock()

	assert.NotNil(t, uc.capturedCtx, "ExecuteJob should have been called")
	deadline, ok := uc.capturedCtx.Deadline()
	assert.True(t, ok, "context passed to ExecuteJob must have a deadline")
	assert.WithinDuration(t, time.Now().Add(jobTimeout), deadline, 5*time.Second)
}

func TestProcessNextJob_MarksStatus(t *testing.T) {
	okJob := makeJob()
	badJob := makeJob()

	repo := &stubJobRepo{jobs: []*domain.IngestJob{okJob, badJob}}
	uc := &stubIndexExecutor{}
	w := NewJobWorker(repo, uc, 0, testLogger())

	w.processNextJob()
	assert.Equal(t, "completed", repo.statuses[okJob.ID])

	uc.mu.Lock()
	uc.returnErr = errors.New("embedder unreachable")
	uc.mu.Unlock()

	w.processNextJob()
	assert.Equal(t, "failed", repo.statuses[badJob.ID])
}

func TestProcessNextJob_UnknownJobTypeFails(t *testing.T) {
	job := makeJob()
	job.JobType = "mystery"
	repo := &stubJobRepo{jobs: []*domain.IngestJob{job}}

	w := NewJobWorker(repo, &stubIndexExecutor{}, 0, testLogger())
	w.processNextJob()

	assert.Equal(t, "failed", repo.statuses[job.ID])
}

func TestJobWorker_BacksOffOnConsecutiveFailures(t *testing.T) {
	repo := &stubJobRepo{
		jobs: []*domain.IngestJob{makeJob(), makeJob(), makeJob()},
	}
	uc := &stubIndexExecutor{returnErr: errors.New("embedder unreachable")}

	w := NewJobWorker(repo, uc, 0, testLogger())

	// First failure: backoff should be initialBackoff (1s)
	w.processNextJob()
	assert.Equal(t, initialBackoff, w.backoff)

	// Second failure: backoff doubles to 2s
	w.processNextJob()
	assert.Equal(t, 2*time.Second, w.backoff)

	// Third failure: backoff doubles to 4s
	w.processNextJob()
	assert.Equal(t, 4*time.Second, w.backoff)
}

func TestJobWorker_BackoffResetsOnSuccess(t *testing.T) {
	repo := &stubJobRepo{
		jobs: []*domain.IngestJob{makeJob(), makeJob()},
	}
	uc := &stubIndexExecutor{returnErr: errors.New("fail")}

	w := NewJobWorker(repo, uc, 0, testLogger())

	// Failure sets backoff
	w.processNextJob()
	assert.Equal(t, initialBackoff, w.backoff)

	// Now succeed
	uc.mu.Lock()
	uc.returnErr = nil
	uc.mu.Unlock()

	w.processNextJob()
	assert.Equal(t, time.Duration(0), w.backoff, "backoff should reset on success")
}

func TestJobWorker_BackoffCapsAtMax(t *testing.T) {
	w := NewJobWorker(nil, nil, 0, testLogger())

	bo := time.Duration(0)
	for i := 0; i < 20; i++ {
		bo = w.nextBackoff(bo)
	}
	assert.Equal(t, maxBackoff, bo, "backoff must cap at maxBackoff")
	assert.LessOrEqual(t, bo, maxBackoff)
}
