package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitordesk/internal/notify"
)

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Queue: QueueCritical, Type: task.Type()}, nil
}

func securityNote(id string) notify.Notification {
	return notify.Notification{
		ID:        id,
		Type:      notify.TypeSecurity,
		Title:     "Blacklisted visitor",
		Message:   "Mallory has been flagged",
		CreatedAt: time.Now(),
		VisitorID: "v1",
	}
}

func TestEscalatorQueuesSecurityOnly(t *testing.T) {
	q := &fakeQueue{}
	e := NewEscalator(q)
	ctx := context.Background()

	require.NoError(t, e.Alert(ctx, notify.Notification{Type: notify.TypeWalkIn, VisitorID: "v2"}))
	require.Empty(t, q.tasks)

	require.NoError(t, e.Alert(ctx, securityNote("n1")))
	require.Len(t, q.tasks, 1)
	assert.Equal(t, TaskTypeSecurityAlert, q.tasks[0].Type())

	var payload SecurityAlertPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &payload))
	assert.Equal(t, "v1", payload.VisitorID)
	assert.Equal(t, "Blacklisted visitor", payload.Title)
}

func TestSecurityAlertPayloadIgnoresViewer(t *testing.T) {
	a, err := NewSecurityAlertTask(securityNote("n1"))
	require.NoError(t, err)
	b, err := NewSecurityAlertTask(securityNote("n2"))
	require.NoError(t, err)

	// Identical payloads let asynq's uniqueness collapse alerts raised by
	// several dashboards.
	assert.Equal(t, a.Payload(), b.Payload())
}

func TestEscalatorTreatsDuplicateAsSuccess(t *testing.T) {
	q := &fakeQueue{err: asynq.ErrDuplicateTask}
	require.NoError(t, NewEscalator(q).Alert(context.Background(), securityNote("n1")))
}

func TestEscalatorReportsQueueErrors(t *testing.T) {
	boom := errors.New("redis down")
	q := &fakeQueue{err: boom}
	err := NewEscalator(q).Alert(context.Background(), securityNote("n1"))
	require.ErrorIs(t, err, boom)
}

func TestHandleSecurityAlert(t *testing.T) {
	var got SecurityAlertPayload
	h := NewTaskHandler(func(_ context.Context, alert SecurityAlertPayload) error {
		got = alert
		return nil
	})

	task, err := NewSecurityAlertTask(securityNote("n1"))
	require.NoError(t, err)
	require.NoError(t, h.HandleSecurityAlert(context.Background(), task))
	assert.Equal(t, "v1", got.VisitorID)

	err = h.HandleSecurityAlert(context.Background(), asynq.NewTask(TaskTypeSecurityAlert, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSecurityAlertSinkFailureRetries(t *testing.T) {
	boom := errors.New("pager unavailable")
	h := NewTaskHandler(func(context.Context, SecurityAlertPayload) error { return boom })

	task, err := NewSecurityAlertTask(securityNote("n1"))
	require.NoError(t, err)
	err = h.HandleSecurityAlert(context.Background(), task)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

type countingSweeper struct {
	calls atomic.Int32
	idle  atomic.Int64
}

func (s *countingSweeper) Sweep(idle time.Duration) int {
	s.idle.Store(int64(idle))
	s.calls.Add(1)
	return 1
}

func TestSchedulerRunsSweep(t *testing.T) {
	s := NewScheduler()
	sweeper := &countingSweeper{}
	require.NoError(t, s.RegisterSweep("@every 10ms", sweeper, time.Minute))
	require.Equal(t, 1, s.Entries())

	s.Start()
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool { return sweeper.calls.Load() > 0 }, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(time.Minute), sweeper.idle.Load())
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	require.Error(t, NewScheduler().RegisterSweep("every now and then", &countingSweeper{}, time.Minute))
}
