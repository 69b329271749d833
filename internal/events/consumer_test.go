package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ackRecorder stands in for the broker side of a delivery.
type ackRecorder struct {
	mu      sync.Mutex
	acks    []uint64
	nacks   []uint64
	requeue []bool
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks = append(a.nacks, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *ackRecorder) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acks), len(a.nacks)
}

type fakeRetrier struct {
	mu       sync.Mutex
	attempts []int
	err      error
}

func (r *fakeRetrier) Retry(_ context.Context, _ amqp.Delivery, attempt int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt)
	return r.err
}

func delivery(t *testing.T, ack amqp.Acknowledger, tag uint64, body any, headers amqp.Table) amqp.Delivery {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: raw, Headers: headers}
}

func runConsumer(t *testing.T, c *Consumer, deliveries ...amqp.Delivery) {
	t.Helper()
	msgs := make(chan amqp.Delivery, len(deliveries))
	for _, d := range deliveries {
		msgs <- d
	}
	close(msgs)
	err := c.Run(context.Background(), msgs)
	require.Error(t, err, "closed delivery channel ends the run")
}

func TestConsumer_AcksHandledAndDeadLettersBad(t *testing.T) {
	ack := &ackRecorder{}
	var mu sync.Mutex
	var dates []string
	handle := func(_ context.Context, ev SubmittedEvent) error {
		mu.Lock()
		defer mu.Unlock()
		dates = append(dates, ev.ReportDate)
		return nil
	}

	good, err := newSubmitted("Ada", "2025-11-05", time.Now())
	require.NoError(t, err)

	runConsumer(t, NewConsumer(handle, nil, 3, nil),
		delivery(t, ack, 1, good, nil),
		delivery(t, ack, 2, []byte("not json"), nil),
		delivery(t, ack, 3, SubmittedEvent{Type: "other", ReportDate: "2025-11-05"}, nil),
		delivery(t, ack, 4, good, nil),
	)

	acks, nacks := ack.counts()
	assert.Equal(t, 2, acks)
	assert.Equal(t, 2, nacks)
	assert.ElementsMatch(t, []bool{false, false}, ack.requeue)
	assert.Equal(t, []string{"2025-11-05", "2025-11-05"}, dates)
}

func TestConsumer_InvalidDateDeadLettersWithoutRetry(t *testing.T) {
	ack := &ackRecorder{}
	retry := &fakeRetrier{}
	called := false
	handle := func(context.Context, SubmittedEvent) error {
		called = true
		return nil
	}

	runConsumer(t, NewConsumer(handle, retry, 1, nil),
		delivery(t, ack, 1, SubmittedEvent{Type: TypeSubmitted, UserName: "Ada", ReportDate: "05/11/2025"}, nil),
	)

	assert.False(t, called)
	assert.Empty(t, retry.attempts)
	assert.Empty(t, ack.acks)
	assert.Equal(t, []uint64{1}, ack.nacks)
	assert.Equal(t, []bool{false}, ack.requeue)
}

func TestDecodeSubmitted_RejectsNonISODate(t *testing.T) {
	for _, date := range []string{"05/11/2025", "2025-13-01", "tomorrow"} {
		raw, err := json.Marshal(SubmittedEvent{Type: TypeSubmitted, UserName: "Ada", ReportDate: date})
		require.NoError(t, err)
		_, err = decodeSubmitted(raw)
		assert.ErrorIs(t, err, ErrBadEvent, date)
	}
}

func TestConsumer_RetriesThenDeadLetters(t *testing.T) {
	ack := &ackRecorder{}
	retry := &fakeRetrier{}
	handle := func(context.Context, SubmittedEvent) error { return errors.New("db down") }
	ev, err := newSubmitted("Ada", "2025-11-05", time.Now())
	require.NoError(t, err)

	runConsumer(t, NewConsumer(handle, retry, 1, nil),
		delivery(t, ack, 1, ev, nil),
		delivery(t, ack, 2, ev, amqp.Table{headerAttempt: int32(1)}),
		delivery(t, ack, 3, ev, amqp.Table{headerAttempt: int32(2)}),
	)

	assert.Equal(t, []int{1, 2}, retry.attempts)
	assert.Equal(t, []uint64{1, 2}, ack.acks)
	assert.Equal(t, []uint64{3}, ack.nacks)
}

func TestConsumer_RetryPublishFailureDeadLetters(t *testing.T) {
	ack := &ackRecorder{}
	retry := &fakeRetrier{err: errors.New("channel closed")}
	handle := func(context.Context, SubmittedEvent) error { return errors.New("boom") }
	ev, err := newSubmitted("Ada", "2025-11-05", time.Now())
	require.NoError(t, err)

	runConsumer(t, NewConsumer(handle, retry, 1, nil), delivery(t, ack, 9, ev, nil))

	assert.Empty(t, ack.acks)
	assert.Equal(t, []uint64{9}, ack.nacks)
}

func TestConsumer_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan amqp.Delivery)

	done := make(chan error, 1)
	go func() { done <- NewConsumer(func(context.Context, SubmittedEvent) error { return nil }, nil, 4, nil).Run(ctx, msgs) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, Noop{}.PublishSubmitted(context.Background(), "Ada", "2025-11-05"))
}

func TestNewSubmitted(t *testing.T) {
	ev, err := newSubmitted("Ada", "2025-11-05", time.Date(2025, 11, 5, 10, 0, 0, 0, time.FixedZone("WAT", 3600)))
	require.NoError(t, err)
	assert.Len(t, ev.EventID, 26)
	assert.Equal(t, TypeSubmitted, ev.Type)
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	back, err := decodeSubmitted(raw)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID, back.EventID)
}
