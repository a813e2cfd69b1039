package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sgd0947/journal/models"
)

// PostHitRecorder bumps a post's hit counter after its detail page is served.
// Attach it to the detail route only; it reads the :id route param.
func PostHitRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only record successful views (2xx) for GET requests.
		if c.Request.Method != "GET" {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			return
		}

		// Atomic increment, no read-modify-write race under concurrency.
		_ = db.Model(&models.Post{}).
			Where("id = ?", id).
			UpdateColumn("post_hit", gorm.Expr("post_hit + ?", 1)).Error
	}
}
