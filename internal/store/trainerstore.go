package store

import (
	"context"
	"time"

	"github.com/vyayamzone/vyayam-api/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

/* ------------------ Trainer profiles ------------------ */

func (s *Store) CreateTrainerProfile(ctx context.Context, p *models.TrainerProfile) error {
	return translate(s.DB.WithContext(ctx).Create(p).Error)
}

func (s *Store) GetTrainerProfileByIdentity(ctx context.Context, identityID string) (*models.TrainerProfile, error) {
	var p models.TrainerProfile
	if err := s.DB.WithContext(ctx).Where("user_id = ?", identityID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) GetTrainerProfileByID(ctx context.Context, id string) (*models.TrainerProfile, error) {
	var p models.TrainerProfile
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) UpdateTrainerProfileFields(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return translate(s.DB.WithContext(ctx).Model(&models.TrainerProfile{}).Where("id = ?", id).Updates(fields).Error)
}

// ListApprovedTrainers returns approved trainers, optionally only those whose
// specializations contain specialization.
func (s *Store) ListApprovedTrainers(ctx context.Context, specialization string) ([]*models.TrainerProfile, error) {
	q := s.DB.WithContext(ctx).Where("status = ?", models.TrainerApproved)
	if specialization != "" {
		q = q.Where(datatypes.JSONArrayQuery("specializations").Contains(specialization))
	}
	var res []*models.TrainerProfile
	if err := q.Order("full_name asc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

/* ------------------ Time slots ------------------ */

func (s *Store) GetTimeSlots(ctx context.Context, trainerID string) (*models.TrainerTimeSlots, error) {
	var ts models.TrainerTimeSlots
	if err := s.DB.WithContext(ctx).Where("trainer_id = ?", trainerID).First(&ts).Error; err != nil {
		return nil, translate(err)
	}
	return &ts, nil
}

// UpsertTimeSlots replaces a trainer's availability document.
func (s *Store) UpsertTimeSlots(ctx context.Context, ts *models.TrainerTimeSlots) error {
	ts.UpdatedAt = time.Now()
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trainer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"time_slots", "updated_at"}),
	}).Create(ts).Error
}
