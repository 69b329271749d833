package a2a

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/suPer8Hu/standup-agent/internal/common"
)

// Inbound is what the workflows need from one webhook call.
type Inbound struct {
	RequestID      any
	Method         string
	MessageText    string
	MessageID      string
	SessionKey     string
	ContextID      string
	ExternalUserID string
	Metadata       map[string]any
}

type Parser struct {
	now   func() time.Time
	token func(prefix string) string
	strip *bluemonday.Policy
}

func NewParser(now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now, token: common.NewToken, strip: bluemonday.StrictPolicy()}
}

func (p *Parser) ParseInboundRequest(req *RPCRequest) Inbound {
	in := Inbound{
		RequestID: req.ID,
		Method:    req.Method,
	}
	if !req.HasID {
		in.RequestID = p.token("")
	}
	if in.Method == "" {
		in.Method = MethodMessageSend
	}

	params := req.Params
	msg := asMap(params["message"])
	in.Metadata = asMap(msg["metadata"])
	if in.Metadata == nil {
		in.Metadata = asMap(params["metadata"])
	}

	in.MessageID = firstString(msg, "messageId", "message_id")
	if in.MessageID == "" {
		in.MessageID = p.token("")
	}
	in.MessageText = p.extractText(msg)
	in.ContextID = p.contextID(params, in.Metadata)
	in.ExternalUserID = firstString(in.Metadata, "telex_user_id", "user_id", "userId")
	in.SessionKey = p.sessionKey(in.ExternalUserID, in.ContextID)
	return in
}

// SessionKey for the flat shape: the explicit id or a fresh token.
func (p *Parser) SimpleSessionKey(req *SimpleRequest) string {
	if s := strings.TrimSpace(req.SessionID); s != "" {
		return s
	}
	return p.token("session")
}

func (p *Parser) contextID(params, meta map[string]any) string {
	if v := firstString(params, "contextId", "context_id"); v != "" {
		return v
	}
	if v := firstString(meta, "telex_channel_id", "channel_id", "conversation_id"); v != "" {
		return v
	}
	if v := firstString(params, "sessionId"); v != "" {
		return v
	}
	return p.token("telex")
}

// sessionKey is {user}-{DDMMYYYY} on the current UTC date, so each external
// user gets one session per day.
func (p *Parser) sessionKey(userID, contextID string) string {
	switch {
	case userID != "":
		return userID + "-" + p.now().UTC().Format("02012006")
	case contextID != "":
		return contextID
	default:
		return p.token("session")
	}
}

type extractor func(p *Parser, msg map[string]any) string

// extractors run in order; the first non-empty result wins.
var extractors = []extractor{
	(*Parser).fromDataHistory,
	(*Parser).fromTextPart,
	(*Parser).fromDirectText,
	(*Parser).fromContent,
	(*Parser).fromAnyText,
}

func (p *Parser) extractText(msg map[string]any) string {
	if len(msg) == 0 {
		return ""
	}
	for _, ex := range extractors {
		if t := ex(p, msg); t != "" {
			return t
		}
	}
	return ""
}

// fromDataHistory takes the newest text item of a data part's history.
func (p *Parser) fromDataHistory(msg map[string]any) string {
	for _, part := range asSlice(msg["parts"]) {
		pm := asMap(part)
		if pm["kind"] != "data" {
			continue
		}
		items := asSlice(pm["data"])
		for i := len(items) - 1; i >= 0; i-- {
			item := asMap(items[i])
			if item["kind"] != "text" {
				continue
			}
			if t := p.clean(item["text"]); t != "" {
				return t
			}
		}
	}
	return ""
}

func (p *Parser) fromTextPart(msg map[string]any) string {
	for _, part := range asSlice(msg["parts"]) {
		pm := asMap(part)
		if pm["kind"] == "text" {
			return p.clean(pm["text"])
		}
	}
	return ""
}

func (p *Parser) fromDirectText(msg map[string]any) string {
	return p.clean(msg["text"])
}

func (p *Parser) fromContent(msg map[string]any) string {
	for _, item := range asSlice(msg["content"]) {
		im := asMap(item)
		if im["type"] != "text" {
			continue
		}
		if t := p.clean(im["text"]); t != "" {
			return t
		}
	}
	return ""
}

// fromAnyText walks the whole structure; map keys are visited in sorted
// order so the result is stable.
func (p *Parser) fromAnyText(msg map[string]any) string {
	var walk func(v any) string
	walk = func(v any) string {
		switch x := v.(type) {
		case map[string]any:
			if t := p.clean(x["text"]); t != "" {
				return t
			}
			keys := make([]string, 0, len(x))
			for k := range x {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if t := walk(x[k]); t != "" {
					return t
				}
			}
		case []any:
			for _, item := range x {
				if t := walk(item); t != "" {
					return t
				}
			}
		}
		return ""
	}
	return walk(msg)
}

// clean strips tags and non-breaking spaces. Text that still looks like
// markup afterwards is dropped.
func (p *Parser) clean(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = p.strip.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") {
		return ""
	}
	return s
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// firstString returns the first key holding a non-empty scalar.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case nil:
			continue
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any, []any:
			continue
		default:
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return ""
}
