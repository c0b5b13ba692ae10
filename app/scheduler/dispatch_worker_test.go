package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/farhadmsg/blastline/config"
	"github.com/farhadmsg/blastline/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessageLogRepo struct {
	mu      sync.Mutex
	due     []*models.MessageLog
	listErr error
	calls   int
}

func (f *fakeMessageLogRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.MessageLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeMessageLogRepo) ByID(ctx context.Context, id uint) (*models.MessageLog, error) {
	return nil, nil
}
func (f *fakeMessageLogRepo) Save(ctx context.Context, entity *models.MessageLog) error { return nil }
func (f *fakeMessageLogRepo) SaveBatch(ctx context.Context, entities []*models.MessageLog) error {
	return nil
}
func (f *fakeMessageLogRepo) ByFilter(ctx context.Context, filter models.MessageLogFilter, limit, offset int) ([]*models.MessageLog, error) {
	return nil, nil
}
func (f *fakeMessageLogRepo) Count(ctx context.Context, filter models.MessageLogFilter) (int64, error) {
	return 0, nil
}
func (f *fakeMessageLogRepo) TransitionStatus(ctx context.Context, id uint, from []models.MessageStatus, to models.MessageStatus, updates map[string]any) (bool, error) {
	return true, nil
}
func (f *fakeMessageLogRepo) Delete(ctx context.Context, id uint) error { return nil }

type fakeExecutor struct {
	mu       sync.Mutex
	executed []uint
	failIDs  map[uint]bool
}

func (f *fakeExecutor) Execute(ctx context.Context, row *models.MessageLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, row.ID)
	if f.failIDs[row.ID] {
		return errors.New("delivery blew up")
	}
	return nil
}

func (f *fakeExecutor) executedIDs() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint, len(f.executed))
	copy(out, f.executed)
	return out
}

func newTestWorker(repo *fakeMessageLogRepo, exec *fakeExecutor) *DispatchWorker {
	return NewDispatchWorker(repo, exec, config.SchedulerConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    100,
		SendTimeout:  time.Second,
		Concurrency:  4,
	}, config.LoggingConfig{Output: "stdout"})
}

func dueLog(id uint) *models.MessageLog {
	return &models.MessageLog{
		ID:      id,
		To:      "989121234567",
		Channel: models.MessageChannelSMS,
		Status:  models.MessageStatusPending,
	}
}

func TestDispatchWorkerRunOnce(t *testing.T) {
	t.Run("DeliversAllDueRows", func(t *testing.T) {
		repo := &fakeMessageLogRepo{due: []*models.MessageLog{dueLog(1), dueLog(2), dueLog(3)}}
		exec := &fakeExecutor{}
		worker := newTestWorker(repo, exec)

		worker.runOnce(context.Background())

		assert.ElementsMatch(t, []uint{1, 2, 3}, exec.executedIDs())
	})

	t.Run("ExecutorErrorDoesNotStopBatch", func(t *testing.T) {
		repo := &fakeMessageLogRepo{due: []*models.MessageLog{dueLog(1), dueLog(2)}}
		exec := &fakeExecutor{failIDs: map[uint]bool{1: true}}
		worker := newTestWorker(repo, exec)

		worker.runOnce(context.Background())

		assert.ElementsMatch(t, []uint{1, 2}, exec.executedIDs())
	})

	t.Run("ListFailureSkipsCycle", func(t *testing.T) {
		repo := &fakeMessageLogRepo{listErr: errors.New("db gone")}
		exec := &fakeExecutor{}
		worker := newTestWorker(repo, exec)

		worker.runOnce(context.Background())

		assert.Empty(t, exec.executedIDs())
	})

	t.Run("EmptyBatchIsQuiet", func(t *testing.T) {
		repo := &fakeMessageLogRepo{}
		exec := &fakeExecutor{}
		worker := newTestWorker(repo, exec)

		worker.runOnce(context.Background())

		assert.Empty(t, exec.executedIDs())
	})
}

func TestDispatchWorkerStartStop(t *testing.T) {
	repo := &fakeMessageLogRepo{due: []*models.MessageLog{dueLog(1)}}
	exec := &fakeExecutor{}
	worker := newTestWorker(repo, exec)

	stop := worker.Start(context.Background())

	assert.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.calls >= 2
	}, 2*time.Second, 5*time.Millisecond)

	stop()
	repo.mu.Lock()
	callsAtStop := repo.calls
	repo.mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.LessOrEqual(t, repo.calls, callsAtStop+1)
}

func TestDispatchWorkerDefaults(t *testing.T) {
	worker := NewDispatchWorker(&fakeMessageLogRepo{}, &fakeExecutor{}, config.SchedulerConfig{}, config.LoggingConfig{Output: "stdout"})
	require.NotNil(t, worker)
	assert.Positive(t, worker.interval)
	assert.Positive(t, worker.batchSize)
	assert.Positive(t, worker.sendTimeout)
	assert.Positive(t, worker.concurrency)
}
