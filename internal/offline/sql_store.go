package offline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/txtshelf/internal/entities"
)

// SQLStore keeps offline entries in a gorm-managed table.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore migrates the offline_entries table and returns a store on it.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&entities.OfflineEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate offline store: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var e entities.OfflineEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	e := entities.OfflineEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&entities.OfflineEntry{}).Error
}

func (s *SQLStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).Model(&entities.OfflineEntry{}).
		Where("key LIKE ? ESCAPE '\\'", likePrefix(prefix)).
		Order("key ASC").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, err
	}
	// LIKE ignores ASCII case in sqlite
	out := keys[:0]
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
