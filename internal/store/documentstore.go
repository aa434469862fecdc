package store

import (
	"context"

	"github.com/vyayamzone/vyayam-api/internal/models"
)

func (s *Store) CreateTrainerDocument(ctx context.Context, d *models.TrainerDocument) error {
	return s.DB.WithContext(ctx).Create(d).Error
}

// ListTrainerDocuments returns a trainer's documents, newest first.
func (s *Store) ListTrainerDocuments(ctx context.Context, trainerID string) ([]models.TrainerDocument, error) {
	var docs []models.TrainerDocument
	err := s.DB.WithContext(ctx).Where("trainer_id = ?", trainerID).Order("created_at DESC").Find(&docs).Error
	return docs, err
}

func (s *Store) GetTrainerDocument(ctx context.Context, id string) (*models.TrainerDocument, error) {
	var d models.TrainerDocument
	if err := s.DB.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *Store) DeleteTrainerDocument(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Delete(&models.TrainerDocument{}, "id = ?", id).Error
}
