package annotations

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/txtshelf/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_annotations_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Annotation{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func strPtr(s string) *string { return &s }

func TestRepository_CreateAndList(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	a := &entities.Annotation{UserID: 1, BookID: 2, FileID: 3, Location: `{"format":"txt"}`, SelectionText: "abc"}
	require.NoError(t, repo.Create(a))
	require.NoError(t, repo.Create(&entities.Annotation{UserID: 2, BookID: 2, FileID: 3}))
	require.NoError(t, repo.Create(&entities.Annotation{UserID: 1, BookID: 9, FileID: 4}))

	got, err := repo.ListForBook(2, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, "abc", got[0].SelectionText)
}

func TestRepository_Update(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	a := &entities.Annotation{UserID: 1, BookID: 2, FileID: 3, Color: strPtr("yellow")}
	require.NoError(t, repo.Create(a))

	got, err := repo.Update(a.ID, Patch{Note: strPtr("remember")})
	require.NoError(t, err)
	assert.Equal(t, "yellow", *got.Color)
	assert.Equal(t, "remember", *got.Note)

	got, err = repo.Update(a.ID, Patch{Color: strPtr("blue")})
	require.NoError(t, err)
	assert.Equal(t, "blue", *got.Color)
	assert.Equal(t, "remember", *got.Note)
}

func TestRepository_Delete(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	a := &entities.Annotation{UserID: 1, BookID: 2, FileID: 3}
	require.NoError(t, repo.Create(a))

	require.NoError(t, repo.Delete(a.ID))

	_, err := repo.Get(a.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete(a.ID), gorm.ErrRecordNotFound)
}
