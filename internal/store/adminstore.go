package store

import (
	"context"
	"time"

	"github.com/vyayamzone/vyayam-api/internal/models"
)

func (s *Store) GetAdminProfileByIdentity(ctx context.Context, identityID string) (*models.AdminProfile, error) {
	var p models.AdminProfile
	if err := s.DB.WithContext(ctx).Where("user_id = ?", identityID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// ListTrainersByStatus returns trainer applications in the given review state, newest first.
func (s *Store) ListTrainersByStatus(ctx context.Context, status models.TrainerStatus) ([]*models.TrainerProfile, error) {
	var res []*models.TrainerProfile
	if err := s.DB.WithContext(ctx).Where("status = ?", status).Order("created_at desc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// SetTrainerStatus records an admin's review decision.
func (s *Store) SetTrainerStatus(ctx context.Context, trainerID string, status models.TrainerStatus) error {
	res := s.DB.WithContext(ctx).Model(&models.TrainerProfile{}).Where("id = ?", trainerID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PlatformCounts summarizes the platform for the admin dashboard.
type PlatformCounts struct {
	Users            int64 `json:"users"`
	Trainers         int64 `json:"trainers"`
	ApprovedTrainers int64 `json:"approved_trainers"`
	PendingTrainers  int64 `json:"pending_trainers"`
	Sessions         int64 `json:"sessions"`
}

func (s *Store) CountPlatform(ctx context.Context) (*PlatformCounts, error) {
	var c PlatformCounts
	db := s.DB.WithContext(ctx)
	if err := db.Model(&models.UserProfile{}).Count(&c.Users).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.TrainerProfile{}).Count(&c.Trainers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.TrainerProfile{}).Where("status = ?", models.TrainerApproved).Count(&c.ApprovedTrainers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.TrainerProfile{}).Where("status = ?", models.TrainerPending).Count(&c.PendingTrainers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.TrainerSession{}).Count(&c.Sessions).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
