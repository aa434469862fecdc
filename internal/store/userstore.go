package store

import (
	"context"
	"time"

	"github.com/vyayamzone/vyayam-api/internal/models"
)

/* ------------------ User profiles ------------------ */

func (s *Store) CreateUserProfile(ctx context.Context, p *models.UserProfile) error {
	return translate(s.DB.WithContext(ctx).Create(p).Error)
}

func (s *Store) GetUserProfileByIdentity(ctx context.Context, identityID string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.DB.WithContext(ctx).Where("user_id = ?", identityID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) UpdateUserProfileFields(ctx context.Context, identityID string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	res := s.DB.WithContext(ctx).Model(&models.UserProfile{}).Where("user_id = ?", identityID).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
