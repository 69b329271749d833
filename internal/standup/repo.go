package standup

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/suPer8Hu/standup-agent/internal/dateparse"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportMatrix maps ISO date to requested user name to report. A nil report
// means the user did not submit that day.
type ReportMatrix map[string]map[string]*StandupReport

// Count is the number of non-nil entries.
func (m ReportMatrix) Count() int {
	n := 0
	for _, byUser := range m {
		for _, r := range byUser {
			if r != nil {
				n++
			}
		}
	}
	return n
}

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) HasSubmittedToday(ctx context.Context, userName string, day time.Time) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&StandupReport{}).
		Where("user_name = ? AND report_date = ?", userName, dateparse.ISO(day)).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveReport inserts the report unless (user_name, report_date) already
// exists. A successful insert drops the cached summary for that date in the
// same transaction.
func (r *Repo) SaveReport(ctx context.Context, rep *StandupReport) (bool, error) {
	inserted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rep)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true
		return tx.Where("summary_date = ?", rep.ReportDate).Delete(&DailySummary{}).Error
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// GetReportsForDate returns the day's reports oldest first.
func (r *Repo) GetReportsForDate(ctx context.Context, day time.Time) ([]StandupReport, error) {
	var out []StandupReport
	if err := r.db.WithContext(ctx).
		Where("report_date = ?", dateparse.ISO(day)).
		Order("submitted_at ASC").
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetReportsForUsersAndRange pre-populates every (date, user) cell in
// [start, end] with nil before filling in submitted reports. Names match
// case-insensitively; keys are the names as requested.
func (r *Repo) GetReportsForUsersAndRange(ctx context.Context, users []string, start, end time.Time) (ReportMatrix, error) {
	days := dateparse.Days(start, end)

	out := make(ReportMatrix, len(days))
	for _, d := range days {
		byUser := make(map[string]*StandupReport, len(users))
		for _, u := range users {
			byUser[u] = nil
		}
		out[dateparse.ISO(d)] = byUser
	}
	if len(users) == 0 || len(days) == 0 {
		return out, nil
	}

	requested := make(map[string]string, len(users))
	lowered := make([]string, 0, len(users))
	for _, u := range users {
		l := strings.ToLower(u)
		if _, dup := requested[l]; !dup {
			requested[l] = u
			lowered = append(lowered, l)
		}
	}

	var rows []StandupReport
	if err := r.db.WithContext(ctx).
		Where("LOWER(user_name) IN ?", lowered).
		Where("report_date BETWEEN ? AND ?", dateparse.ISO(start), dateparse.ISO(end)).
		Order("report_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for i := range rows {
		row := &rows[i]
		name, ok := requested[strings.ToLower(row.UserName)]
		if !ok {
			continue
		}
		if byUser, ok := out[row.ReportDate]; ok {
			byUser[name] = row
		}
	}
	return out, nil
}

// GetCachedSummary returns nil when no summary is cached for the day.
func (r *Repo) GetCachedSummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	var s DailySummary
	err := r.db.WithContext(ctx).
		Where("summary_date = ?", dateparse.ISO(day)).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CacheSummary upserts the summary for the day.
func (r *Repo) CacheSummary(ctx context.Context, day time.Time, text string, count int, generatedAt time.Time) error {
	s := DailySummary{
		SummaryDate:      dateparse.ISO(day),
		FullSummary:      text,
		TotalSubmissions: count,
		GeneratedAt:      generatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "summary_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_summary", "total_submissions", "generated_at"}),
	}).Create(&s).Error
}

func (r *Repo) CountReportsForDate(ctx context.Context, day time.Time) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&StandupReport{}).
		Where("report_date = ?", dateparse.ISO(day)).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}
