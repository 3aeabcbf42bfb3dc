package consumer

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/notihub/gateway/internal/config"
	"github.com/notihub/gateway/internal/credentials"
	"github.com/notihub/gateway/internal/domain/model"
	repo "github.com/notihub/gateway/internal/domain/repository"
	"github.com/notihub/gateway/internal/senders"
	"github.com/notihub/gateway/internal/storage/rabbitmq"
	"github.com/notihub/gateway/internal/workers"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func discardLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type fakeQueue struct {
	mu       sync.Mutex
	pushed   [][]byte
	failed   [][]byte
	toPop    [][]byte
	popCalls int
}

func (q *fakeQueue) Push(ctx context.Context, job []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pushed = append(q.pushed, job)
	return nil
}

func (q *fakeQueue) Pop(ctx context.Context) ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.popCalls++
	if len(q.toPop) == 0 {
		return nil, nil
	}
	job := q.toPop[0]
	q.toPop = q.toPop[1:]
	return job, nil
}

func (q *fakeQueue) PushFailed(ctx context.Context, job []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed = append(q.failed, job)
	return nil
}

type fakeRepo struct{}

func (r *fakeRepo) Save(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	return n, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	return nil, repo.ErrNotFound
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	return nil
}

func newTestDispatcher(t *testing.T, queue *fakeQueue) *workers.Dispatcher {
	t.Helper()
	cfg := &config.Config{}
	cfg.Worker.MailboxDepth = 4

	cache := credentials.New(credentials.NewFileTokenSource("/nonexistent"), discardLogger())
	push := senders.NewPushSender(cfg, cache, discardLogger())
	email := senders.NewEmailSender(cfg, discardLogger())
	sms := senders.NewSMSSender()

	audit, err := rabbitmq.NewAuditPublisher(nil, discardLogger())
	require.NoError(t, err)

	return workers.NewDispatcher(cfg, push, email, sms, &fakeRepo{}, queue, audit, discardLogger())
}

func TestConsumer_RouteOne_PoisonedEnvelopeDeadLetters(t *testing.T) {
	queue := &fakeQueue{}
	c := New(&config.Config{}, queue, nil, discardLogger())

	c.routeOne(context.Background(), []byte("not json"))

	require.Len(t, queue.failed, 1)
	require.Equal(t, "not json", string(queue.failed[0]))
}

func TestConsumer_RouteOne_UnknownChannelDeadLetters(t *testing.T) {
	queue := &fakeQueue{}
	dispatcher := newTestDispatcher(t, queue)
	c := New(&config.Config{}, queue, dispatcher, discardLogger())

	job := []byte(`{"notification_id":"` + uuid.New().String() + `","channel":"carrier_pigeon"}`)
	c.routeOne(context.Background(), job)

	require.Len(t, queue.failed, 1)
}

func TestConsumer_RouteOne_KnownChannelReachesActorMailbox(t *testing.T) {
	queue := &fakeQueue{}
	dispatcher := newTestDispatcher(t, queue)
	c := New(&config.Config{}, queue, dispatcher, discardLogger())

	job := []byte(`{"notification_id":"` + uuid.New().String() + `","channel":"sms"}`)
	c.routeOne(context.Background(), job)

	require.Empty(t, queue.failed, "a known channel must not be dead-lettered by routing alone")
}

func TestConsumer_Running_ReflectsSupervisorState(t *testing.T) {
	queue := &fakeQueue{}
	dispatcher := newTestDispatcher(t, queue)
	cfg := &config.Config{}
	cfg.Worker.IdleBackoff = 5 * time.Millisecond
	c := New(cfg, queue, dispatcher, discardLogger())

	require.False(t, c.Running())

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)

	require.Eventually(t, c.Running, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return !c.Running() }, time.Second, 5*time.Millisecond)
}
