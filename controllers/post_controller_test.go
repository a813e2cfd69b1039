package controllers

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sgd0947/journal/models"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("CACHE_DISABLED", "1")
	os.Exit(m.Run())
}

var dbSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:controllers_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Tag{},
		&models.Photo{},
		&models.Review{},
		&models.ReReview{},
		&models.Like{},
	))
	return db
}

// Mail is unconfigured in the test environment, so delivery fails; the
// notification must swallow that quietly and leave the database alone.
func TestNotifyNewPostMailFailureIsNonFatal(t *testing.T) {
	db := newTestDB(t)
	p := NewPostController(db)

	author := models.User{Username: "a@example.com", Email: "a@example.com"}
	require.NoError(t, db.Create(&author).Error)
	reader := models.User{Username: "r@example.com", Email: "r@example.com", EmailVerified: true}
	require.NoError(t, db.Create(&reader).Error)

	post := models.Post{AuthorID: author.ID, Title: "a freshly published post", Content: "body"}
	require.NoError(t, db.Create(&post).Error)

	assert.NotPanics(t, func() { p.notifyNewPost(post) })

	var posts, users int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), posts)
	assert.Equal(t, int64(2), users)
}

// With nobody verified the notification is a no-op.
func TestNotifyNewPostNoVerifiedRecipients(t *testing.T) {
	db := newTestDB(t)
	p := NewPostController(db)

	author := models.User{Username: "a@example.com", Email: "a@example.com"}
	require.NoError(t, db.Create(&author).Error)
	post := models.Post{AuthorID: author.ID, Title: "a post nobody hears about", Content: "body"}
	require.NoError(t, db.Create(&post).Error)

	assert.NotPanics(t, func() { p.notifyNewPost(post) })
}
