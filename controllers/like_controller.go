package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sgd0947/journal/models"
	"github.com/sgd0947/journal/utils"
)

// LikeController flips post-like membership for ajax callers.
type LikeController struct {
	db *gorm.DB
}

// NewLikeController creates a new LikeController instance.
func NewLikeController(db *gorm.DB) *LikeController {
	return &LikeController{db: db}
}

// Toggle adds or removes the caller's like on ?post_pk=N and reports the
// resulting count. Anonymous callers get a login prompt and no mutation.
// The response is the raw `{like_count, message}` object the widget expects.
func (l *LikeController) Toggle(ctx *gin.Context) {
	postID, err := strconv.ParseUint(ctx.Query("post_pk"), 10, 64)
	if err != nil || postID == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid post_pk"})
		return
	}

	var post models.Post
	if err := l.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load post"})
		return
	}

	userID, authed := getUserID(ctx)
	if !authed {
		var count int64
		if err := l.db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&count).Error; err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count likes"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"like_count": count,
			"message":    models.LikeLoginMessage,
		})
		return
	}

	var outcome models.ToggleOutcome
	err = l.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&count).Error; err != nil {
			return err
		}
		var existing models.Like
		member := true
		if err := tx.Where("post_id = ? AND user_id = ?", post.ID, userID).
			First(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			member = false
		}

		outcome = models.ToggleLike(member, count)
		if outcome.Member {
			return tx.Create(&models.Like{PostID: post.ID, UserID: userID}).Error
		}
		return tx.Delete(&existing).Error
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle like"})
		return
	}

	// Report committed cardinality, not the precomputed delta, so concurrent
	// toggles never skew the number shown.
	var committed int64
	if err := l.db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&committed).Error; err == nil {
		outcome.LikeCount = committed
	}

	utils.InvalidateByPrefix("cache:posts:list:")

	ctx.JSON(http.StatusOK, gin.H{
		"like_count": outcome.LikeCount,
		"message":    outcome.Message,
	})
}
