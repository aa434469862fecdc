package store

import (
	"context"
	"time"

	"github.com/vyayamzone/vyayam-api/internal/models"
)

/* ------------------ Identities ------------------ */

func (s *Store) CreateIdentity(ctx context.Context, id *models.Identity) error {
	return translate(s.DB.WithContext(ctx).Create(id).Error)
}

func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var id models.Identity
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&id).Error; err != nil {
		return nil, translate(err)
	}
	return &id, nil
}

func (s *Store) GetIdentityByID(ctx context.Context, identityID string) (*models.Identity, error) {
	var id models.Identity
	if err := s.DB.WithContext(ctx).First(&id, "id = ?", identityID).Error; err != nil {
		return nil, translate(err)
	}
	return &id, nil
}

// ConfirmIdentity marks the identity holding tokenHash as confirmed and
// clears the token so it cannot be used twice.
func (s *Store) ConfirmIdentity(ctx context.Context, tokenHash string) (*models.Identity, error) {
	var id models.Identity
	if err := s.DB.WithContext(ctx).Where("confirmation_hash = ? AND confirmation_hash <> ''", tokenHash).First(&id).Error; err != nil {
		return nil, translate(err)
	}
	now := time.Now()
	if err := s.DB.WithContext(ctx).Model(&id).Updates(map[string]interface{}{
		"confirmation_hash":  "",
		"email_confirmed_at": now,
		"updated_at":         now,
	}).Error; err != nil {
		return nil, err
	}
	id.ConfirmationHash = ""
	id.EmailConfirmedAt = &now
	return &id, nil
}
