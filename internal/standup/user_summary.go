package standup

import (
	"context"
	"fmt"
	"strings"

	"github.com/suPer8Hu/standup-agent/internal/ai"
	"github.com/suPer8Hu/standup-agent/internal/dateparse"
	"go.uber.org/zap"
)

const msgNoNames = "I couldn't identify which team members you're asking about. Please mention their names clearly (e.g., 'Show me Sarah's standup' or 'Get John and Mike's updates')."

// GetUserSummary renders the named users' standups day by day over the
// range in the query. It is recomputed on every call.
func (s *Service) GetUserSummary(ctx context.Context, query string) string {
	names, err := s.extractUserNames(ctx, query)
	if err != nil {
		s.log.Warn("user name extraction failed", zap.Error(err))
		return msgNoNames
	}
	if len(names) == 0 {
		return msgNoNames
	}

	start, end := s.dates.ParseDateRange(query)
	matrix, err := s.store.GetReportsForUsersAndRange(ctx, names, start, end)
	if err != nil {
		s.log.Error("load user reports failed",
			zap.Strings("users", names),
			zap.String("start", dateparse.ISO(start)),
			zap.String("end", dateparse.ISO(end)),
			zap.Error(err))
		return msgReadFailed
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Standup Summary for %s\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "**Period:** %s\n\n---\n\n", s.dates.FormatRangeFriendly(start, end))

	days := dateparse.Days(start, end)
	for _, d := range days {
		fmt.Fprintf(&b, "## %s (%s)\n\n", s.dates.FormatFriendly(d), d.Weekday())
		byUser := matrix[dateparse.ISO(d)]
		for _, name := range names {
			r := byUser[name]
			if r == nil {
				fmt.Fprintf(&b, "**%s:** Did not submit a standup for %s\n\n", name, dateparse.FormatLong(d))
				continue
			}
			fmt.Fprintf(&b, "**%s:**\n", name)
			writeField(&b, "Yesterday", r.YesterdayWork)
			writeField(&b, "Today", &r.TodayPlan)
			writeField(&b, "Blockers", r.Blockers)
			writeField(&b, "Notes", r.AdditionalNotes)
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}

	possible := len(names) * len(days)
	actual := matrix.Count()
	rate := 0.0
	if possible > 0 {
		rate = float64(actual) / float64(possible) * 100
	}
	b.WriteString("**Summary Statistics:**\n")
	fmt.Fprintf(&b, "- Total Days: %d\n", len(days))
	fmt.Fprintf(&b, "- Team Members Tracked: %d\n", len(names))
	fmt.Fprintf(&b, "- Submissions: %d / %d\n", actual, possible)
	fmt.Fprintf(&b, "- Completion Rate: %.1f%%\n", rate)
	return b.String()
}

func writeField(b *strings.Builder, label string, v *string) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return
	}
	fmt.Fprintf(b, "- **%s:** %s\n", label, *v)
}

// extractUserNames accepts {"user_names": [...]} or a bare JSON list.
func (s *Service) extractUserNames(ctx context.Context, query string) ([]string, error) {
	out, err := ai.Complete(ctx, s.llm, userNamesPrompt(query))
	if err != nil {
		return nil, err
	}

	var v struct {
		UserNames []string `json:"user_names"`
	}
	if err := ai.DecodeJSON(out, &v); err != nil {
		var list []string
		if listErr := ai.DecodeJSON(out, &list); listErr != nil {
			return nil, err
		}
		v.UserNames = list
	}

	seen := make(map[string]bool, len(v.UserNames))
	names := make([]string, 0, len(v.UserNames))
	for _, n := range v.UserNames {
		n = strings.TrimSpace(n)
		if !ai.Present(&n) || seen[strings.ToLower(n)] {
			continue
		}
		seen[strings.ToLower(n)] = true
		names = append(names, n)
	}
	return names, nil
}
