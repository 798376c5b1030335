// Package settings provides database operations for server settings that can
// change at runtime, such as the default chapter pattern.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	pattern := repo.GetString(entities.SettingKeyChapterPattern, chapters.DefaultPattern)
package settings

import (
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/txtshelf/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting retrieves a setting by key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// GetString returns the stored value or fallback when the key is unset or blank.
func (r *Repository) GetString(key, fallback string) string {
	setting, err := r.GetSetting(key)
	if err != nil || setting.Value == "" {
		return fallback
	}
	return setting.Value
}

// SetSetting creates or updates a setting.
func (r *Repository) SetSetting(key, value string) error {
	setting := entities.Setting{Key: key, Value: value}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

// SetTime stores t as RFC 3339.
func (r *Repository) SetTime(key string, t time.Time) error {
	return r.SetSetting(key, t.UTC().Format(time.RFC3339))
}

// SetInt stores n in decimal.
func (r *Repository) SetInt(key string, n int) error {
	return r.SetSetting(key, strconv.Itoa(n))
}

// GetTime parses a value written by SetTime. ok is false when unset.
func (r *Repository) GetTime(key string) (time.Time, bool) {
	setting, err := r.GetSetting(key)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, setting.Value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DeleteSetting removes a setting by key.
func (r *Repository) DeleteSetting(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}
