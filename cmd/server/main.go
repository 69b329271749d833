package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/suPer8Hu/standup-agent/internal/a2a"
	"github.com/suPer8Hu/standup-agent/internal/agent"
	"github.com/suPer8Hu/standup-agent/internal/ai"
	"github.com/suPer8Hu/standup-agent/internal/config"
	"github.com/suPer8Hu/standup-agent/internal/convstate"
	"github.com/suPer8Hu/standup-agent/internal/dateparse"
	"github.com/suPer8Hu/standup-agent/internal/db"
	"github.com/suPer8Hu/standup-agent/internal/events"
	"github.com/suPer8Hu/standup-agent/internal/httpapi"
	"github.com/suPer8Hu/standup-agent/internal/httpapi/handlers"
	"github.com/suPer8Hu/standup-agent/internal/logger"
	"github.com/suPer8Hu/standup-agent/internal/standup"
	"github.com/suPer8Hu/standup-agent/internal/timewindow"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
	log.Info("server stopped")
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

	state, closeState, err := openStateStore(ctx, cfg.State, gdb)
	if err != nil {
		return err
	}
	defer closeState()

	var publisher standup.Publisher = events.Noop{}
	if cfg.Rabbit.URL != "" {
		p, err := events.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.Queue)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()
		publisher = p
		log.Info("publishing submission events", zap.String("queue", cfg.Rabbit.Queue))
	}

	svc := standup.NewService(standup.NewRepo(gdb), llm, window, dates, state, log).WithPublisher(publisher)
	dispatcher := agent.NewDispatcher(svc, llm, agent.NewTranscriptRepo(gdb), window, cfg.ChatContextWindowSize, log)

	h := handlers.NewHandler(
		gdb,
		dispatcher,
		a2a.NewParser(time.Now),
		a2a.NewBuilder(a2a.Style(cfg.App.ResponseStyle), time.Now),
		a2a.NewAgentCard(cfg.App.Name, cfg.App.PublicURL, window.Describe()),
		log,
	)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.NewRouter(h, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("provider", cfg.AI.Provider),
			zap.String("window", window.Describe()),
			zap.String("state_backend", cfg.State.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStateStore(ctx context.Context, cfg config.StateConfig, gdb *gorm.DB) (convstate.Store, func(), error) {
	ttl := time.Duration(cfg.TTLHours) * time.Hour
	switch cfg.Backend {
	case "memory":
		return convstate.NewMemoryStore(), func() {}, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return convstate.NewRedisStore(rdb, ttl), func() { _ = rdb.Close() }, nil
	default:
		return convstate.NewDBStore(gdb, ttl, time.Now), func() {}, nil
	}
}
