package handlers

import (
	"context"

	"github.com/suPer8Hu/standup-agent/internal/a2a"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Agent answers one conversational turn for a session.
type Agent interface {
	Handle(ctx context.Context, session, text string) (string, error)
}

type Handler struct {
	DB      *gorm.DB
	Agent   Agent
	Parser  *a2a.Parser
	Builder *a2a.Builder
	Card    a2a.AgentCard
	Log     *zap.Logger
}

func NewHandler(db *gorm.DB, agent Agent, parser *a2a.Parser, builder *a2a.Builder, card a2a.AgentCard, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		DB:      db,
		Agent:   agent,
		Parser:  parser,
		Builder: builder,
		Card:    card,
		Log:     log,
	}
}
