package standup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/suPer8Hu/standup-agent/internal/ai"
	"github.com/suPer8Hu/standup-agent/internal/convstate"
	"github.com/suPer8Hu/standup-agent/internal/dateparse"
	"github.com/suPer8Hu/standup-agent/internal/timewindow"
	"go.uber.org/zap"
)

const (
	msgExtractionFailed = "Sorry, I couldn't understand your standup format. Please try again with: 'Hi, I'm [Your Name]. Yesterday I [work]. Today I'm [plan].'"
	msgAskName          = "Thanks for the update! Before I save your standup, I need to know your name. What's your name?"
	msgNameUnclear      = "I couldn't extract your name from that. Please tell me your name clearly, like 'I'm John' or 'My name is Sarah'."
	msgNameFailed       = "I had trouble understanding your name. Please tell me your name clearly."
)

// extraction is the model's reading of a standup message. Any field may be
// nil or the literal "null".
type extraction struct {
	UserName        *string `json:"user_name"`
	YesterdayWork   *string `json:"yesterday_work"`
	TodayPlan       *string `json:"today_plan"`
	Blockers        *string `json:"blockers"`
	AdditionalNotes *string `json:"additional_notes"`
}

// pendingStandup is held in conversation state while waiting for a name.
type pendingStandup struct {
	YesterdayWork   *string `json:"yesterday_work"`
	TodayPlan       *string `json:"today_plan"`
	Blockers        *string `json:"blockers"`
	AdditionalNotes *string `json:"additional_notes"`
	RawMessage      string  `json:"raw_message"`
}

// AwaitingName reports whether the previous turn in the session asked for
// the user's name.
func (s *Service) AwaitingName(ctx context.Context, session string) (bool, error) {
	v, ok, err := s.state.Get(ctx, session, convstate.KeyAskedForName)
	if err != nil {
		return false, fmt.Errorf("read session state: %w", err)
	}
	return ok && v == "true", nil
}

// Submit runs one turn of the submission flow. Every user-facing outcome is
// returned as text; the error is reserved for conversation state failures.
func (s *Service) Submit(ctx context.Context, session, message string) (string, error) {
	awaiting, err := s.AwaitingName(ctx, session)
	if err != nil {
		return "", err
	}

	var (
		ext extraction
		raw = message
	)
	if awaiting {
		pending, ok, err := s.loadPending(ctx, session)
		if err != nil {
			return "", err
		}
		if !ok {
			// The flag outlived its payload; start over with this message.
			if err := s.clearPending(ctx, session); err != nil {
				return "", err
			}
			awaiting = false
		} else {
			name, reply := s.extractName(ctx, message)
			if name == "" {
				return reply, nil
			}
			if err := s.clearPending(ctx, session); err != nil {
				return "", err
			}
			ext = extraction{
				UserName:        &name,
				YesterdayWork:   pending.YesterdayWork,
				TodayPlan:       pending.TodayPlan,
				Blockers:        pending.Blockers,
				AdditionalNotes: pending.AdditionalNotes,
			}
			raw = pending.RawMessage
		}
	}

	if !awaiting {
		ext, err = s.extract(ctx, message)
		if err != nil {
			s.log.Warn("standup extraction failed", zap.String("session", session), zap.Error(err))
			return msgExtractionFailed, nil
		}
		if !ai.Present(ext.UserName) {
			if err := s.savePending(ctx, session, ext, message); err != nil {
				return "", err
			}
			return msgAskName, nil
		}
	}

	return s.finish(ctx, ext, raw), nil
}

func (s *Service) finish(ctx context.Context, ext extraction, raw string) string {
	name := strings.TrimSpace(*ext.UserName)

	if !ai.Present(ext.TodayPlan) {
		return fmt.Sprintf(`Hi %s! I see what you did yesterday, but I need to know what you're working on TODAY.

Please resubmit your standup including your plan for today.`, name)
	}

	if status := s.window.CurrentStatus(); status != timewindow.StatusDuring {
		return s.window.Message(name, status)
	}

	today := s.window.Today()
	dup, err := s.store.HasSubmittedToday(ctx, name, today)
	if err != nil {
		s.log.Error("duplicate check failed", zap.String("user", name), zap.String("date", dateparse.ISO(today)), zap.Error(err))
		return fmt.Sprintf("Error saving your standup, %s. Please try again or contact support.", name)
	}
	if dup {
		return fmt.Sprintf(`Hey %s!

You've already submitted your standup for today.
I can only accept one submission per person per day.

If you need to make changes, please reach out to your team lead manually.

Want to see today's summary instead?`, name)
	}

	rep := &StandupReport{
		UserName:        name,
		ReportDate:      dateparse.ISO(today),
		SubmittedAt:     s.window.Now(),
		YesterdayWork:   ai.Clean(ext.YesterdayWork),
		TodayPlan:       strings.TrimSpace(*ext.TodayPlan),
		Blockers:        ai.Clean(ext.Blockers),
		AdditionalNotes: ai.Clean(ext.AdditionalNotes),
		RawMessage:      raw,
		IsWithinWindow:  true,
	}
	saved, err := s.store.SaveReport(ctx, rep)
	if err != nil {
		s.log.Error("save standup failed", zap.String("user", name), zap.String("date", rep.ReportDate), zap.Error(err))
	}
	if !saved {
		return fmt.Sprintf("Error saving your standup, %s. Please try again or contact support.", name)
	}
	s.log.Info("standup saved", zap.String("user", name), zap.String("date", rep.ReportDate))

	if err := s.events.PublishSubmitted(ctx, name, rep.ReportDate); err != nil {
		s.log.Warn("publish standup event failed", zap.String("user", name), zap.Error(err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Perfect timing, %s! ✅\n\nI've recorded your standup update:", name)
	if rep.YesterdayWork != nil {
		fmt.Fprintf(&b, "\n• Yesterday: %s", *rep.YesterdayWork)
	}
	fmt.Fprintf(&b, "\n• Today: %s", rep.TodayPlan)
	if rep.Blockers != nil {
		fmt.Fprintf(&b, "\n• Blockers: %s", *rep.Blockers)
	}
	b.WriteString("\n\nThanks for keeping the team informed!")
	return b.String()
}

func (s *Service) extract(ctx context.Context, message string) (extraction, error) {
	var ext extraction
	out, err := ai.Complete(ctx, s.llm, extractionPrompt(message))
	if err != nil {
		return ext, err
	}
	if err := ai.DecodeJSON(out, &ext); err != nil {
		return ext, err
	}
	return ext, nil
}

// extractName returns the name, or "" with the reply to send instead.
func (s *Service) extractName(ctx context.Context, message string) (string, string) {
	out, err := ai.Complete(ctx, s.llm, nameExtractionPrompt(message))
	if err != nil {
		s.log.Warn("name extraction failed", zap.Error(err))
		return "", msgNameFailed
	}
	var v struct {
		UserName *string `json:"user_name"`
	}
	if err := ai.DecodeJSON(out, &v); err != nil {
		s.log.Warn("name extraction unparseable", zap.Error(err))
		return "", msgNameFailed
	}
	if !ai.Present(v.UserName) {
		return "", msgNameUnclear
	}
	return strings.TrimSpace(*v.UserName), ""
}

func (s *Service) savePending(ctx context.Context, session string, ext extraction, raw string) error {
	payload, err := json.Marshal(pendingStandup{
		YesterdayWork:   ai.Clean(ext.YesterdayWork),
		TodayPlan:       ai.Clean(ext.TodayPlan),
		Blockers:        ai.Clean(ext.Blockers),
		AdditionalNotes: ai.Clean(ext.AdditionalNotes),
		RawMessage:      raw,
	})
	if err != nil {
		return err
	}
	if err := s.state.Set(ctx, session, convstate.KeyPendingStandup, string(payload)); err != nil {
		return fmt.Errorf("write session state: %w", err)
	}
	if err := s.state.Set(ctx, session, convstate.KeyAskedForName, "true"); err != nil {
		return fmt.Errorf("write session state: %w", err)
	}
	return nil
}

func (s *Service) loadPending(ctx context.Context, session string) (pendingStandup, bool, error) {
	var p pendingStandup
	v, ok, err := s.state.Get(ctx, session, convstate.KeyPendingStandup)
	if err != nil {
		return p, false, fmt.Errorf("read session state: %w", err)
	}
	if !ok {
		return p, false, nil
	}
	if err := json.Unmarshal([]byte(v), &p); err != nil {
		s.log.Warn("discarding corrupt pending standup", zap.String("session", session), zap.Error(err))
		return p, false, nil
	}
	return p, true, nil
}

func (s *Service) clearPending(ctx context.Context, session string) error {
	if err := s.state.Clear(ctx, session, convstate.KeyAskedForName, convstate.KeyPendingStandup); err != nil {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}
