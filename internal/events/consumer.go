package events

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const defaultMaxAttempts = 3

type Handler func(ctx context.Context, ev SubmittedEvent) error

// Retrier re-enqueues a delivery for a later attempt.
type Retrier interface {
	Retry(ctx context.Context, d amqp.Delivery, attempt int) error
}

type Consumer struct {
	handle      Handler
	retry       Retrier
	concurrency int
	maxAttempts int
	log         *zap.Logger
}

func NewConsumer(handle Handler, retry Retrier, concurrency int, log *zap.Logger) *Consumer {
	if concurrency <= 0 {
		concurrency = 2
	}
	if concurrency > 50 {
		concurrency = 50
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		handle:      handle,
		retry:       retry,
		concurrency: concurrency,
		maxAttempts: defaultMaxAttempts,
		log:         log,
	}
}

// Run fans deliveries out to a fixed pool of workers until ctx is done or
// the delivery channel closes, then waits for in-flight work.
func (c *Consumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	jobs := make(chan amqp.Delivery, c.concurrency*2)

	var wg sync.WaitGroup
	wg.Add(c.concurrency)
	for i := 0; i < c.concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				c.process(ctx, workerID, d)
			}
		}(i)
	}

	defer func() {
		close(jobs)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("consumer shutting down")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			select {
			case jobs <- d:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return nil
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, workerID int, d amqp.Delivery) {
	log := c.log.With(zap.Int("worker", workerID), zap.String("message_id", d.MessageId))

	ev, err := decodeSubmitted(d.Body)
	if err != nil {
		log.Warn("bad message", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	if err := c.handle(ctx, ev); err != nil {
		attempt := attemptOf(d) + 1
		log.Warn("event failed", zap.String("date", ev.ReportDate), zap.Int("attempt", attempt), zap.Duration("cost", time.Since(start)), zap.Error(err))
		if c.retry != nil && attempt < c.maxAttempts {
			rerr := c.retry.Retry(ctx, d, attempt)
			if rerr == nil {
				_ = d.Ack(false)
				return
			}
			log.Error("retry publish failed", zap.Error(rerr))
		}
		_ = d.Nack(false, false)
		return
	}

	if err := d.Ack(false); err != nil {
		log.Warn("ack failed", zap.Error(err))
		return
	}
	log.Debug("event handled", zap.String("date", ev.ReportDate), zap.Duration("cost", time.Since(start)))
}

func attemptOf(d amqp.Delivery) int {
	switch v := d.Headers[headerAttempt].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
