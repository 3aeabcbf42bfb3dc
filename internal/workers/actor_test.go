package workers

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	gwerrors "github.com/notihub/gateway/internal/domain/errors"
	"github.com/notihub/gateway/internal/domain/model"
	repo "github.com/notihub/gateway/internal/domain/repository"
	"github.com/notihub/gateway/internal/storage/rabbitmq"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type fakeSender struct {
	err error
}

func (f *fakeSender) Send(ctx context.Context, job *model.Job, notifications repo.NotificationRepository) error {
	return f.err
}

type fakeQueue struct {
	mu     sync.Mutex
	pushed [][]byte
	failed [][]byte
}

func (q *fakeQueue) Push(ctx context.Context, job []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pushed = append(q.pushed, job)
	return nil
}

func (q *fakeQueue) Pop(ctx context.Context) ([]byte, error) { return nil, nil }

func (q *fakeQueue) PushFailed(ctx context.Context, job []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed = append(q.failed, job)
	return nil
}

type fakeRepo struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]model.Status
}

func newFakeRepo() *fakeRepo { return &fakeRepo{statuses: make(map[uuid.UUID]model.Status)} }

func (r *fakeRepo) Save(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	return n, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	return nil, repo.ErrNotFound
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id] = status
	return nil
}

func newTestActor(t *testing.T, sender *fakeSender) (*Actor, *fakeQueue, *fakeRepo) {
	t.Helper()
	queue := &fakeQueue{}
	notifications := newFakeRepo()
	audit, err := rabbitmq.NewAuditPublisher(nil, discardLogger())
	require.NoError(t, err)
	actor := NewActor("push", sender, notifications, queue, audit, 4, discardLogger())
	return actor, queue, notifications
}

func marshalJob(t *testing.T, job model.Job) []byte {
	t.Helper()
	body, err := json.Marshal(job)
	require.NoError(t, err)
	return body
}

func TestActorHandle_SuccessMarksNothingFurther(t *testing.T) {
	actor, queue, _ := newTestActor(t, &fakeSender{err: nil})
	id := uuid.New()
	job := model.Job{NotificationID: id.String(), Channel: "push"}

	actor.handle(context.Background(), marshalJob(t, job))

	assert.Empty(t, queue.pushed)
	assert.Empty(t, queue.failed)
}

func TestActorHandle_RetryableErrorReEnqueuesWithIncrementedCount(t *testing.T) {
	sendErr := gwerrors.RequestFailed(500)
	actor, queue, _ := newTestActor(t, &fakeSender{err: sendErr})
	id := uuid.New()
	job := model.Job{NotificationID: id.String(), Channel: "push", RetryCount: 0}

	actor.handle(context.Background(), marshalJob(t, job))

	require.Len(t, queue.pushed, 1)
	var retried model.Job
	require.NoError(t, json.Unmarshal(queue.pushed[0], &retried))
	assert.Equal(t, 1, retried.RetryCount)
	assert.Empty(t, queue.failed)
}

func TestActorHandle_ExhaustedRetriesDeadLetters(t *testing.T) {
	sendErr := gwerrors.RequestFailed(500)
	actor, queue, notifications := newTestActor(t, &fakeSender{err: sendErr})
	id := uuid.New()
	job := model.Job{NotificationID: id.String(), Channel: "push", RetryCount: model.MaxRetries}

	actor.handle(context.Background(), marshalJob(t, job))

	assert.Empty(t, queue.pushed)
	require.Len(t, queue.failed, 1)
	assert.Equal(t, model.StatusFailed, notifications.statuses[id])
}

func TestActorHandle_TerminalErrorDeadLettersWithoutRetry(t *testing.T) {
	sendErr := gwerrors.ChannelUnsupported("sms")
	actor, queue, notifications := newTestActor(t, &fakeSender{err: sendErr})
	id := uuid.New()
	job := model.Job{NotificationID: id.String(), Channel: "push", RetryCount: 0}

	actor.handle(context.Background(), marshalJob(t, job))

	assert.Empty(t, queue.pushed)
	require.Len(t, queue.failed, 1)
	assert.Equal(t, model.StatusFailed, notifications.statuses[id])
}

func TestActorHandle_UndecodableJobDeadLetters(t *testing.T) {
	actor, queue, _ := newTestActor(t, &fakeSender{err: nil})

	actor.handle(context.Background(), []byte("not json"))

	require.Len(t, queue.failed, 1)
}

func TestActorDispatchAndRun_DrainsMailbox(t *testing.T) {
	sendErr := gwerrors.ChannelUnsupported("sms")
	actor, queue, _ := newTestActor(t, &fakeSender{err: sendErr})
	id := uuid.New()
	job := model.Job{NotificationID: id.String(), Channel: "push"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go actor.Run(ctx)

	actor.Dispatch(ctx, marshalJob(t, job))

	require.Eventually(t, func() bool {
		queue.mu.Lock()
		defer queue.mu.Unlock()
		return len(queue.failed) == 1
	}, time.Second, 10*time.Millisecond, "expected terminal error to reach the dead-letter queue")
}

func TestActorDispatch_FullMailboxDeadLettersInsteadOfBlocking(t *testing.T) {
	queue := &fakeQueue{}
	notifications := newFakeRepo()
	audit, err := rabbitmq.NewAuditPublisher(nil, discardLogger())
	require.NoError(t, err)
	// depth 1 and no Run goroutine draining it: the first Dispatch fills the
	// mailbox, the second must return immediately rather than block.
	actor := NewActor("push", &fakeSender{err: nil}, notifications, queue, audit, 1, discardLogger())

	id1, id2 := uuid.New(), uuid.New()
	actor.Dispatch(context.Background(), marshalJob(t, model.Job{NotificationID: id1.String(), Channel: "push"}))

	done := make(chan struct{})
	go func() {
		actor.Dispatch(context.Background(), marshalJob(t, model.Job{NotificationID: id2.String(), Channel: "push"}))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full mailbox instead of dead-lettering")
	}

	queue.mu.Lock()
	defer queue.mu.Unlock()
	require.Len(t, queue.failed, 1)
	var deadLettered model.Job
	require.NoError(t, json.Unmarshal(queue.failed[0], &deadLettered))
	assert.Equal(t, id2.String(), deadLettered.NotificationID)
}
