package standup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/standup-agent/internal/ai"
	"github.com/suPer8Hu/standup-agent/internal/dateparse"
	"go.uber.org/zap"
)

const msgReadFailed = "Sorry, I couldn't load the standup reports right now. Please try again in a moment."

// GetSummary returns the team summary for the day the query names. A
// cached summary is returned without calling the model.
func (s *Service) GetSummary(ctx context.Context, query string) string {
	day := s.dates.ParseDate(query)
	label := s.dates.FormatFriendly(day)

	cached, err := s.store.GetCachedSummary(ctx, day)
	if err != nil {
		s.log.Warn("summary cache lookup failed", zap.String("date", dateparse.ISO(day)), zap.Error(err))
	}
	if cached != nil {
		return fmt.Sprintf("# Daily Standup Summary - %s\n*Cached from %s | %d team members reported*\n\n%s",
			label, s.clock(cached.GeneratedAt), cached.TotalSubmissions, cached.FullSummary)
	}

	reports, err := s.store.GetReportsForDate(ctx, day)
	if err != nil {
		s.log.Error("load reports failed", zap.String("date", dateparse.ISO(day)), zap.Error(err))
		return msgReadFailed
	}
	if len(reports) == 0 {
		if dateparse.ISO(day) == dateparse.ISO(s.dates.Today()) {
			return fmt.Sprintf(`No standup reports submitted yet for %s.

The standup window is %s.
Team members can submit their updates during this window.`, label, s.window.Describe())
		}
		return fmt.Sprintf("No standup reports found for %s.", label)
	}

	text, generatedAt := s.generate(ctx, day, label, reports)
	return fmt.Sprintf("# Daily Standup Summary - %s\n*Generated at %s | %d team members reported*\n\n%s",
		label, s.clock(generatedAt), len(reports), text)
}

// WarmSummary regenerates and caches the summary for a day. Days without
// reports are left uncached.
func (s *Service) WarmSummary(ctx context.Context, day time.Time) error {
	reports, err := s.store.GetReportsForDate(ctx, day)
	if err != nil {
		return fmt.Errorf("load reports %s: %w", dateparse.ISO(day), err)
	}
	if len(reports) == 0 {
		return nil
	}
	s.generate(ctx, day, s.dates.FormatFriendly(day), reports)
	return nil
}

// generate asks the model for the summary, falls back to a mechanical one,
// and caches whichever was produced. A report saved while the model was
// working makes the text stale, so it is returned but not cached.
func (s *Service) generate(ctx context.Context, day time.Time, label string, reports []StandupReport) (string, time.Time) {
	text, err := ai.Complete(ctx, s.llm, summaryPrompt(label, reports, s.window.Location()))
	if err != nil {
		s.log.Warn("summary generation failed, using fallback", zap.String("date", dateparse.ISO(day)), zap.Error(err))
		text = fallbackSummary(label, reports)
	}

	generatedAt := s.window.Now()
	s.cache(ctx, day, text, len(reports), generatedAt)
	return text, generatedAt
}

func (s *Service) cache(ctx context.Context, day time.Time, text string, count int, generatedAt time.Time) {
	date := dateparse.ISO(day)
	current, err := s.store.CountReportsForDate(ctx, day)
	if err != nil {
		s.log.Warn("recount before caching failed", zap.String("date", date), zap.Error(err))
		return
	}
	if current != count {
		s.log.Info("summary outdated before caching, skipped",
			zap.String("date", date), zap.Int("summarized", count), zap.Int("current", current))
		return
	}
	if err := s.store.CacheSummary(ctx, day, text, count, generatedAt); err != nil {
		s.log.Warn("cache summary failed", zap.String("date", date), zap.Error(err))
	}
}

func fallbackSummary(label string, reports []StandupReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Team Updates - %s**\n\n%d team members submitted standups:\n\n", label, len(reports))
	for _, r := range reports {
		fmt.Fprintf(&b, "**%s:**\n- Today: %s\n", r.UserName, r.TodayPlan)
		if r.Blockers != nil && *r.Blockers != "" {
			fmt.Fprintf(&b, "- Blockers: %s\n", *r.Blockers)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Service) clock(t time.Time) string {
	return t.In(s.window.Location()).Format(clockLayout)
}
