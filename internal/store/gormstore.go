package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/config"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/store/migrations"
	"github.com/vyayamzone/vyayam-api/internal/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound is shared with backend so store lookups satisfy backend.ProfileLookup.
	ErrNotFound = backend.ErrNotFound
	// ErrConflict is returned when a unique constraint rejects a write, including
	// an email that already has a profile in another collection.
	ErrConflict = errors.New("record conflicts with an existing one")
)

type Store struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewGormStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Pooling sensible defaults for small VPS (tune later)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{DB: db, Cfg: cfg}
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate creates tables with AutoMigrate, then applies the embedded goose
// migrations for constraints AutoMigrate cannot express.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.DB.WithContext(ctx).Set("gorm:DisableForeignKeyConstraintWhenMigrating", true).AutoMigrate(
		&models.Identity{},
		&models.RefreshToken{},
		&models.TrainerProfile{},
		&models.AdminProfile{},
		&models.UserProfile{},
		&models.TrainerTimeSlots{},
		&models.TrainerSession{},
		&models.TrainerDocument{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return runMigrations(ctx, sqlDB)
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// translate maps gorm and driver errors onto the store's sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// unavailable reports whether err means the database could not be reached.
func unavailable(err error) bool {
	var netErr net.Error
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &netErr)
}

/* ------------------ Refresh token methods ------------------ */

// SaveRefreshToken stores a token (hashed) and expiry
func (s *Store) SaveRefreshToken(ctx context.Context, identityID, plainToken string, expiresAt time.Time) error {
	rt := models.RefreshToken{
		ID:         utils.GenerateID(),
		IdentityID: identityID,
		TokenHash:  utils.HashToken(plainToken),
		IssuedAt:   time.Now(),
		ExpiresAt:  expiresAt,
	}
	return s.DB.WithContext(ctx).Create(&rt).Error
}

func (s *Store) RevokeRefreshToken(ctx context.Context, plainToken string) error {
	return s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", utils.HashToken(plainToken)).Update("revoked", true).Error
}

// RevokeAllRefreshTokens ends every session of an identity.
func (s *Store) RevokeAllRefreshTokens(ctx context.Context, identityID string) error {
	return s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = false", identityID).Update("revoked", true).Error
}

// RotateRefreshToken revokes oldPlain and stores newPlain for the same
// identity in one transaction. It returns the identity id.
func (s *Store) RotateRefreshToken(ctx context.Context, oldPlain, newPlain string, newExpiry time.Time) (string, error) {
	var identityID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.RefreshToken
		if err := tx.Where("token_hash = ? AND revoked = false AND expires_at > ?", utils.HashToken(oldPlain), time.Now()).First(&old).Error; err != nil {
			return err
		}
		res := tx.Model(&models.RefreshToken{}).Where("id = ? AND revoked = false", old.ID).Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		identityID = old.IdentityID
		return tx.Create(&models.RefreshToken{
			ID:         utils.GenerateID(),
			IdentityID: old.IdentityID,
			TokenHash:  utils.HashToken(newPlain),
			IssuedAt:   time.Now(),
			ExpiresAt:  newExpiry,
		}).Error
	})
	return identityID, translate(err)
}

func (s *Store) DeleteExpiredTokens(ctx context.Context) error {
	return s.DB.WithContext(ctx).Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{}).Error
}

/* ------------------ Helpers ------------------ */

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
