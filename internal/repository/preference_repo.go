package repository

import (
	"context"
	"errors"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PreferenceRepository interface {
	// Find returns nil, nil when the user has no preference row.
	Find(ctx context.Context, userID uuid.UUID) (*model.UserPreference, error)
	Upsert(ctx context.Context, pref *model.UserPreference) error
}

type preferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) Find(ctx context.Context, userID uuid.UUID) (*model.UserPreference, error) {
	var pref model.UserPreference
	err := GetDB(ctx, r.db).First(&pref, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *preferenceRepository) Upsert(ctx context.Context, pref *model.UserPreference) error {
	return GetDB(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"default_landing_page", "theme", "page_size", "updated_at"}),
		}).
		Create(pref).Error
}
