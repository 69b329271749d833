package standup

import "time"

// StandupReport is one person's update for one calendar day. ReportDate is
// the local day as YYYY-MM-DD.
type StandupReport struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserName        string    `gorm:"type:varchar(100);not null;uniqueIndex:uniq_report_user_date,priority:1" json:"user_name"`
	ReportDate      string    `gorm:"type:varchar(10);not null;index;uniqueIndex:uniq_report_user_date,priority:2" json:"report_date"`
	SubmittedAt     time.Time `gorm:"not null;index" json:"submitted_at"`
	YesterdayWork   *string   `gorm:"type:text" json:"yesterday_work"`
	TodayPlan       string    `gorm:"type:text;not null" json:"today_plan"`
	Blockers        *string   `gorm:"type:text" json:"blockers"`
	AdditionalNotes *string   `gorm:"type:text" json:"additional_notes"`
	RawMessage      string    `gorm:"type:text;not null" json:"raw_message"`
	IsWithinWindow  bool      `gorm:"not null" json:"is_within_window"`
}

func (StandupReport) TableName() string { return "standup_reports" }

// DailySummary caches the generated team summary for a day.
type DailySummary struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SummaryDate      string    `gorm:"type:varchar(10);not null;uniqueIndex" json:"summary_date"`
	FullSummary      string    `gorm:"type:text;not null" json:"full_summary"`
	TotalSubmissions int       `gorm:"not null;default:0" json:"total_submissions"`
	GeneratedAt      time.Time `gorm:"not null" json:"generated_at"`
}

func (DailySummary) TableName() string { return "daily_summaries" }
