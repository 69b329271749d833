// Package agent routes each inbound turn to a standup workflow by intent.
package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/suPer8Hu/standup-agent/internal/ai"
	"github.com/suPer8Hu/standup-agent/internal/timewindow"
	"go.uber.org/zap"
)

type Intent string

const (
	IntentSubmit      Intent = "submit_standup"
	IntentSummary     Intent = "get_summary"
	IntentUserSummary Intent = "get_user_summary"
	IntentHelp        Intent = "help"
)

func (i Intent) valid() bool {
	switch i {
	case IntentSubmit, IntentSummary, IntentUserSummary, IntentHelp:
		return true
	}
	return false
}

// Workflows is the tool surface the dispatcher drives.
type Workflows interface {
	AwaitingName(ctx context.Context, session string) (bool, error)
	Submit(ctx context.Context, session, message string) (string, error)
	GetSummary(ctx context.Context, query string) string
	GetUserSummary(ctx context.Context, query string) string
}

type Dispatcher struct {
	flows       Workflows
	llm         ai.Provider
	transcript  Transcript
	window      *timewindow.Policy
	historySize int
	log         *zap.Logger
}

func NewDispatcher(flows Workflows, llm ai.Provider, transcript Transcript, window *timewindow.Policy, historySize int, log *zap.Logger) *Dispatcher {
	if historySize <= 0 || historySize > 100 {
		historySize = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		flows:       flows,
		llm:         llm,
		transcript:  transcript,
		window:      window,
		historySize: historySize,
		log:         log,
	}
}

// Handle answers one user turn. Errors are infrastructure failures the
// caller reports as internal errors.
func (d *Dispatcher) Handle(ctx context.Context, session, text string) (string, error) {
	history := d.history(ctx, session)
	d.record(ctx, session, RoleUser, text)

	intent, err := d.route(ctx, session, text, history)
	if err != nil {
		return "", err
	}
	d.log.Debug("routed turn", zap.String("session", session), zap.String("intent", string(intent)))

	var reply string
	switch intent {
	case IntentSubmit:
		reply, err = d.flows.Submit(ctx, session, text)
		if err != nil {
			return "", fmt.Errorf("submit standup: %w", err)
		}
	case IntentSummary:
		reply = d.flows.GetSummary(ctx, text)
	case IntentUserSummary:
		reply = d.flows.GetUserSummary(ctx, text)
	default:
		reply = d.help()
	}

	d.record(ctx, session, RoleAgent, reply)
	return reply, nil
}

func (d *Dispatcher) route(ctx context.Context, session, text string, history []Turn) (Intent, error) {
	awaiting, err := d.flows.AwaitingName(ctx, session)
	if err != nil {
		return "", err
	}
	if awaiting {
		return IntentSubmit, nil
	}

	out, err := ai.Complete(ctx, d.llm, intentPrompt(text, history))
	if err == nil {
		var v struct {
			Intent Intent `json:"intent"`
		}
		if err = ai.DecodeJSON(out, &v); err == nil && v.Intent.valid() {
			return v.Intent, nil
		}
	}
	d.log.Debug("intent classification fell back to keywords", zap.Error(err))
	return heuristicIntent(text), nil
}

func (d *Dispatcher) history(ctx context.Context, session string) []Turn {
	if d.transcript == nil {
		return nil
	}
	turns, err := d.transcript.Recent(ctx, session, d.historySize)
	if err != nil {
		d.log.Warn("load transcript failed", zap.String("session", session), zap.Error(err))
		return nil
	}
	return turns
}

func (d *Dispatcher) record(ctx context.Context, session, role, content string) {
	if d.transcript == nil {
		return
	}
	if err := d.transcript.Append(ctx, session, role, content); err != nil {
		d.log.Warn("append transcript failed", zap.String("session", session), zap.String("role", role), zap.Error(err))
	}
}

func (d *Dispatcher) help() string {
	return fmt.Sprintf(`Hi! I'm your Daily Standup Agent. Here's what I can do:

1. **Collect your standup** (%s): tell me your name, what you did yesterday, what you're working on today and any blockers.
2. **Team summary**: ask "What's the team summary?" or "Show me yesterday's updates".
3. **Member updates**: ask "Get John and Mike's updates for this week".

Summaries are available anytime.`, d.window.Describe())
}

var (
	possessiveRe = regexp.MustCompile(`\b([A-Z][a-zA-Z]+)'s\b`)
	notPeople    = map[string]bool{"today": true, "yesterday": true, "team": true, "week": true, "it": true, "that": true, "what": true, "let": true, "here": true}
)

// heuristicIntent is used when the model can't classify the turn.
func heuristicIntent(text string) Intent {
	q := strings.ToLower(text)

	if mentionsPerson(text) && containsAny(q, "standup", "update", "summary", "report", "work") {
		return IntentUserSummary
	}
	if containsAny(q, "yesterday i", "today i", "i'm working", "i am working", "i worked", "my name is", "blocker") {
		return IntentSubmit
	}
	if containsAny(q, "summary", "summaries", "report", "updates", "standups") {
		return IntentSummary
	}
	return IntentHelp
}

func mentionsPerson(text string) bool {
	for _, m := range possessiveRe.FindAllStringSubmatch(text, -1) {
		if !notPeople[strings.ToLower(m[1])] {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func intentPrompt(text string, history []Turn) string {
	var convo strings.Builder
	for _, t := range history {
		fmt.Fprintf(&convo, "%s: %s\n", t.Role, t.Content)
	}
	if convo.Len() == 0 {
		convo.WriteString("(none)\n")
	}

	return fmt.Sprintf(`You route messages for a daily standup assistant. Choose exactly one intent:
- submit_standup: the user is giving their own standup update (yesterday's work, today's plan, blockers) or answering a question from the assistant about it
- get_summary: the user wants the whole team's standup summary for a day
- get_user_summary: the user asks about specific named people's standups, possibly over a date range
- help: greetings, questions about what the assistant can do, anything else

RECENT CONVERSATION:
%s
MESSAGE:
%s

Respond ONLY with valid JSON:
{"intent": "submit_standup | get_summary | get_user_summary | help"}`, convo.String(), text)
}
