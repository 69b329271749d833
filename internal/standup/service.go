// Package standup implements standup submission and the summary workflows
// on top of the report store.
package standup

import (
	"context"
	"time"

	"github.com/suPer8Hu/standup-agent/internal/ai"
	"github.com/suPer8Hu/standup-agent/internal/convstate"
	"github.com/suPer8Hu/standup-agent/internal/dateparse"
	"github.com/suPer8Hu/standup-agent/internal/timewindow"
	"go.uber.org/zap"
)

// clockLayout renders times like "10:04 AM WAT".
const clockLayout = "03:04 PM MST"

// ReportStore is the persistence the workflows need. *Repo implements it.
type ReportStore interface {
	HasSubmittedToday(ctx context.Context, userName string, day time.Time) (bool, error)
	SaveReport(ctx context.Context, rep *StandupReport) (bool, error)
	GetReportsForDate(ctx context.Context, day time.Time) ([]StandupReport, error)
	GetReportsForUsersAndRange(ctx context.Context, users []string, start, end time.Time) (ReportMatrix, error)
	GetCachedSummary(ctx context.Context, day time.Time) (*DailySummary, error)
	CacheSummary(ctx context.Context, day time.Time, text string, count int, generatedAt time.Time) error
	CountReportsForDate(ctx context.Context, day time.Time) (int, error)
}

// Publisher announces saved reports. Failures never fail a submission.
type Publisher interface {
	PublishSubmitted(ctx context.Context, userName, reportDate string) error
}

type noopPublisher struct{}

func (noopPublisher) PublishSubmitted(context.Context, string, string) error { return nil }

type Service struct {
	store  ReportStore
	llm    ai.Provider
	window *timewindow.Policy
	dates  *dateparse.Parser
	state  convstate.Store
	events Publisher
	log    *zap.Logger
}

func NewService(store ReportStore, llm ai.Provider, window *timewindow.Policy, dates *dateparse.Parser, state convstate.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:  store,
		llm:    llm,
		window: window,
		dates:  dates,
		state:  state,
		events: noopPublisher{},
		log:    log,
	}
}

// WithPublisher sets where submission events go.
func (s *Service) WithPublisher(p Publisher) *Service {
	if p != nil {
		s.events = p
	}
	return s
}

func (s *Service) Window() *timewindow.Policy { return s.window }
