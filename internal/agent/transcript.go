package agent

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Turn is one side of an exchange within a session.
type Turn struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionKey string    `gorm:"type:varchar(191);not null;index:idx_turn_session_id,priority:1" json:"session_key"`
	Role       string    `gorm:"type:varchar(16);not null" json:"role"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Turn) TableName() string { return "conversation_turns" }

type Transcript interface {
	Append(ctx context.Context, session, role, content string) error
	Recent(ctx context.Context, session string, limit int) ([]Turn, error)
}

type TranscriptRepo struct {
	db *gorm.DB
}

func NewTranscriptRepo(db *gorm.DB) *TranscriptRepo {
	return &TranscriptRepo{db: db}
}

func (r *TranscriptRepo) Append(ctx context.Context, session, role, content string) error {
	return r.db.WithContext(ctx).Create(&Turn{
		SessionKey: session,
		Role:       role,
		Content:    content,
	}).Error
}

// Recent returns up to limit turns, oldest first.
func (r *TranscriptRepo) Recent(ctx context.Context, session string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 20
	}
	var desc []Turn
	if err := r.db.WithContext(ctx).
		Where("session_key = ?", session).
		Order("id DESC").
		Limit(limit).
		Find(&desc).Error; err != nil {
		return nil, err
	}

	// reverse to ASC (oldest -> newest)
	out := make([]Turn, 0, len(desc))
	for i := len(desc) - 1; i >= 0; i-- {
		out = append(out, desc[i])
	}
	return out, nil
}
