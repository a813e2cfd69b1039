package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sgd0947/journal/models"
	"github.com/sgd0947/journal/utils"
)

// ChartController serves site analytics.
type ChartController struct {
	db *gorm.DB
}

// NewChartController creates a new ChartController instance.
func NewChartController(db *gorm.DB) *ChartController {
	return &ChartController{db: db}
}

// PopulationChart returns per-user activity as parallel arrays the chart
// widget consumes directly: `labels` (usernames) and `data` (post counts),
// busiest authors first. `likes_given` rides along per user.
func (c *ChartController) PopulationChart(ctx *gin.Context) {
	var rows []struct {
		Username string
		NPosts   int64
		NLikes   int64
	}
	if err := c.db.Model(&models.User{}).
		Select("users.username AS username, " +
			"COUNT(DISTINCT posts.id) AS n_posts, " +
			"COUNT(DISTINCT likes.id) AS n_likes").
		Joins("LEFT JOIN posts ON posts.author_id = users.id").
		Joins("LEFT JOIN likes ON likes.user_id = users.id").
		Group("users.id").
		Order("n_posts DESC, users.username ASC").
		Scan(&rows).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chart data"})
		return
	}

	labels := make([]string, 0, len(rows))
	data := make([]int64, 0, len(rows))
	likesGiven := make([]int64, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, row.Username)
		data = append(data, row.NPosts)
		likesGiven = append(likesGiven, row.NLikes)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"labels":      labels,
		"data":        data,
		"likes_given": likesGiven,
	})
}

// GetStats returns aggregate site counters.
func (c *ChartController) GetStats(ctx *gin.Context) {
	var userCount, postCount, reviewCount, likeCount, todayPosts int64

	if err := c.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		userCount = 0
	}
	if err := c.db.Model(&models.Post{}).Count(&postCount).Error; err != nil {
		postCount = 0
	}
	if err := c.db.Model(&models.Review{}).Count(&reviewCount).Error; err != nil {
		reviewCount = 0
	}
	if err := c.db.Model(&models.Like{}).Count(&likeCount).Error; err != nil {
		likeCount = 0
	}

	midnight := time.Now().Truncate(24 * time.Hour)
	if err := c.db.Model(&models.Post{}).Where("created_at >= ?", midnight).
		Count(&todayPosts).Error; err != nil {
		todayPosts = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":   userCount,
		"post_count":   postCount,
		"review_count": reviewCount,
		"like_count":   likeCount,
		"today_posts":  todayPosts,
	})
}
