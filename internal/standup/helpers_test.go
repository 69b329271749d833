package standup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/suPer8Hu/standup-agent/internal/ai"
	"github.com/suPer8Hu/standup-agent/internal/convstate"
	"github.com/suPer8Hu/standup-agent/internal/dateparse"
	"github.com/suPer8Hu/standup-agent/internal/timewindow"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var wat = time.FixedZone("WAT", 60*60)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&StandupReport{}, &DailySummary{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type scriptedReply struct {
	text string
	err  error
}

// scriptedLLM answers calls in order and records every prompt.
// during, when set, runs once inside the next call before it answers.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []scriptedReply
	prompts []string
	during  func()
}

func (p *scriptedLLM) Chat(_ context.Context, messages []ai.Message) (string, error) {
	p.mu.Lock()
	hook := p.during
	p.during = nil
	p.mu.Unlock()
	if hook != nil {
		hook()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	var prompt string
	for _, m := range messages {
		prompt += m.Content
	}
	p.prompts = append(p.prompts, prompt)
	if len(p.replies) == 0 {
		return "", errors.New("unexpected llm call")
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return r.text, r.err
}

func (p *scriptedLLM) push(text string) *scriptedLLM {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = append(p.replies, scriptedReply{text: text})
	return p
}

func (p *scriptedLLM) fail(err error) *scriptedLLM {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = append(p.replies, scriptedReply{err: err})
	return p
}

func (p *scriptedLLM) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

func (p *scriptedLLM) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[len(p.prompts)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) PublishSubmitted(_ context.Context, userName, reportDate string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, userName+"@"+reportDate)
	return p.err
}

type harness struct {
	now   time.Time
	db    *gorm.DB
	repo  *Repo
	llm   *scriptedLLM
	state *convstate.MemoryStore
	pub   *recordingPublisher
	svc   *Service
}

// newHarness starts the clock at Wednesday 2025-11-05 10:00 WAT, inside the
// default 9:30-12:30 window.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		now:   time.Date(2025, 11, 5, 10, 0, 0, 0, wat),
		db:    openTestDB(t),
		llm:   &scriptedLLM{},
		state: convstate.NewMemoryStore(),
		pub:   &recordingPublisher{},
	}
	clock := func() time.Time { return h.now }
	h.repo = NewRepo(h.db)
	window := timewindow.New(wat, timewindow.ClockTime{Hour: 9, Minute: 30}, timewindow.ClockTime{Hour: 12, Minute: 30}, clock)
	dates := dateparse.New(wat, clock)
	h.svc = NewService(h.repo, h.llm, window, dates, h.state, nil).WithPublisher(h.pub)
	return h
}

func (h *harness) day(s string) time.Time {
	d, err := time.ParseInLocation(dateparse.ISOLayout, s, wat)
	if err != nil {
		panic(err)
	}
	return d
}

func (h *harness) seed(t *testing.T, name, date, plan string, blockers *string, at time.Time) {
	t.Helper()
	ok, err := h.repo.SaveReport(context.Background(), &StandupReport{
		UserName:       name,
		ReportDate:     date,
		SubmittedAt:    at,
		TodayPlan:      plan,
		Blockers:       blockers,
		RawMessage:     name + ": " + plan,
		IsWithinWindow: true,
	})
	if err != nil || !ok {
		t.Fatalf("seed %s/%s: ok=%v err=%v", name, date, ok, err)
	}
}

func ptr(s string) *string { return &s }

func countLines(s, sub string) int { return strings.Count(s, sub) }
