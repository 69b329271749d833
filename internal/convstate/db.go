package convstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is one session's state bag. Rows past ExpiresAt read as empty.
type Record struct {
	SessionKey string         `gorm:"type:varchar(191);primaryKey"`
	Data       datatypes.JSON `gorm:"not null"`
	ExpiresAt  time.Time      `gorm:"index;not null"`
	UpdatedAt  time.Time
}

func (Record) TableName() string { return "conversation_states" }

type DBStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewDBStore(db *gorm.DB, ttl time.Duration, now func() time.Time) *DBStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &DBStore{db: db, ttl: ttl, now: now}
}

func (s *DBStore) Get(ctx context.Context, session, key string) (string, bool, error) {
	values, err := s.load(s.db.WithContext(ctx), session)
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *DBStore) Set(ctx context.Context, session, key, value string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values, err := s.load(tx, session)
		if err != nil {
			return err
		}
		values[key] = value
		return s.save(tx, session, values)
	})
}

func (s *DBStore) Clear(ctx context.Context, session string, keys ...string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values, err := s.load(tx, session)
		if err != nil {
			return err
		}
		for _, k := range keys {
			delete(values, k)
		}
		if len(values) == 0 {
			return tx.Delete(&Record{}, "session_key = ?", session).Error
		}
		return s.save(tx, session, values)
	})
}

func (s *DBStore) load(tx *gorm.DB, session string) (map[string]string, error) {
	values := map[string]string{}

	var rec Record
	err := tx.Where("session_key = ?", session).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", session, err)
	}
	if !rec.ExpiresAt.After(s.now()) {
		return values, nil
	}
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &values); err != nil {
			return nil, fmt.Errorf("decode state %s: %w", session, err)
		}
	}
	return values, nil
}

func (s *DBStore) save(tx *gorm.DB, session string, values map[string]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	now := s.now()
	rec := Record{
		SessionKey: session,
		Data:       datatypes.JSON(raw),
		ExpiresAt:  now.Add(s.ttl),
		UpdatedAt:  now,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "expires_at", "updated_at"}),
	}).Create(&rec).Error
}
