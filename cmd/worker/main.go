package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/pflag"
	"github.com/suPer8Hu/standup-agent/internal/ai"
	"github.com/suPer8Hu/standup-agent/internal/config"
	"github.com/suPer8Hu/standup-agent/internal/convstate"
	"github.com/suPer8Hu/standup-agent/internal/dateparse"
	"github.com/suPer8Hu/standup-agent/internal/db"
	"github.com/suPer8Hu/standup-agent/internal/events"
	"github.com/suPer8Hu/standup-agent/internal/logger"
	"github.com/suPer8Hu/standup-agent/internal/standup"
	"github.com/suPer8Hu/standup-agent/internal/timewindow"
	"go.uber.org/zap"
)

// The worker consumes standup.submitted events and regenerates the cached
// summary for the event's day, so the next summary request is a cache hit.
func main() {
	configPath := pflag.StringP("config", "c", "", "path to YAML config (default etc/config.yaml if present)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.Rabbit.URL == "" {
		log.Fatal("RABBIT_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("worker exited", zap.Error(err))
	}
	log.Info("worker stopped")
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	gdb, err := db.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gdb) }()
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	llm, err := ai.NewConfiguredRegistry(cfg.AI).Get(ctx, cfg.AI.Provider, "")
	if err != nil {
		return err
	}

	window := timewindow.New(
		timewindow.LoadLocation(cfg.Window.Timezone),
		timewindow.ClockTime{Hour: cfg.Window.StartHour, Minute: cfg.Window.StartMinute},
		timewindow.ClockTime{Hour: cfg.Window.EndHour, Minute: cfg.Window.EndMinute},
		time.Now,
	)
	dates := dateparse.New(window.Location(), time.Now)
	svc := standup.NewService(standup.NewRepo(gdb), llm, window, dates, convstate.NewMemoryStore(), log)

	// The publisher declares the topology and doubles as the retrier.
	retrier, err := events.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.Queue)
	if err != nil {
		return err
	}
	defer func() { _ = retrier.Close() }()

	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	concurrency := cfg.Rabbit.WorkerConcurrency
	if err := ch.Qos(concurrency, 0, false); err != nil {
		return err
	}
	msgs, err := ch.Consume(cfg.Rabbit.Queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	handle := func(ctx context.Context, ev events.SubmittedEvent) error {
		day, err := dates.ParseISO(ev.ReportDate)
		if err != nil {
			return err
		}
		start := time.Now()
		if err := svc.WarmSummary(ctx, day); err != nil {
			return err
		}
		log.Info("summary warmed",
			zap.String("event_id", ev.EventID),
			zap.String("user", ev.UserName),
			zap.String("date", ev.ReportDate),
			zap.Duration("cost", time.Since(start)),
		)
		return nil
	}

	log.Info("worker started", zap.String("queue", cfg.Rabbit.Queue), zap.Int("concurrency", concurrency))
	return events.NewConsumer(handle, retrier, concurrency, log).Run(ctx, msgs)
}
