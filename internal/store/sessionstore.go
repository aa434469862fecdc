package store

import (
	"context"
	"time"

	"github.com/vyayamzone/vyayam-api/internal/models"
)

// TrainerSessionFilter narrows ListTrainerSessions. Zero times are unbounded.
type TrainerSessionFilter struct {
	TrainerID string
	From      time.Time
	To        time.Time
	Status    *string
}

func (s *Store) CreateTrainerSession(ctx context.Context, ts *models.TrainerSession) error {
	return s.DB.WithContext(ctx).Create(ts).Error
}

func (s *Store) ListTrainerSessions(ctx context.Context, f TrainerSessionFilter) ([]*models.TrainerSession, error) {
	q := s.DB.WithContext(ctx).Model(&models.TrainerSession{}).Where("trainer_id = ?", f.TrainerID)
	if !f.From.IsZero() {
		q = q.Where("session_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("session_date < ?", f.To)
	}
	if f.Status != nil && *f.Status != "" {
		q = q.Where("status = ?", *f.Status)
	}

	var out []*models.TrainerSession
	if err := q.Order("session_date desc, start_time desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// TrainerStats are the analytics shown on the trainer dashboard.
type TrainerStats struct {
	TotalSessions     int64   `json:"total_sessions"`
	CompletedSessions int64   `json:"completed_sessions"`
	UpcomingSessions  int64   `json:"upcoming_sessions"`
	TotalEarnings     float64 `json:"total_earnings"`
	AverageRating     float64 `json:"average_rating"`
}

// SummarizeSessions computes TrainerStats from session rows. Sessions dated
// on or after today that are still scheduled count as upcoming.
func SummarizeSessions(sessions []*models.TrainerSession, now time.Time) TrainerStats {
	var st TrainerStats
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var ratingSum, rated int
	for _, ts := range sessions {
		st.TotalSessions++
		switch {
		case ts.Status == "completed":
			st.CompletedSessions++
		case ts.Status == "scheduled" && !ts.SessionDate.Before(today):
			st.UpcomingSessions++
		}
		if ts.Earnings != nil {
			st.TotalEarnings += *ts.Earnings
		}
		if ts.Rating != nil {
			ratingSum += *ts.Rating
			rated++
		}
	}
	if rated > 0 {
		st.AverageRating = float64(ratingSum) / float64(rated)
	}
	return st
}
