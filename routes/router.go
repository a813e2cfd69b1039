package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sgd0947/journal/config"
	"github.com/sgd0947/journal/controllers"
	"github.com/sgd0947/journal/middleware"
	"github.com/sgd0947/journal/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(db)
	reviewController := controllers.NewReviewController(db)
	likeController := controllers.NewLikeController(db)
	chartController := controllers.NewChartController(db)

	// Public reads. The listing resolves an optional identity for the
	// owner-scoped sort; the detail route counts hits.
	r.GET("/", middleware.AuthOptional(), postController.ListPosts)
	r.GET("/:id", middleware.PostHitRecorder(db), postController.GetPost)
	r.GET("/:id/next", postController.PostNext)
	r.GET("/:id/prev", postController.PostPrev)
	r.GET("/:id/photo/download", postController.DownloadPhotos)
	r.GET("/:id/review", postController.PostReviews)
	r.GET("/review", reviewController.ListReviews)
	r.GET("/tag", postController.TagCloud)
	r.GET("/tag/:name", postController.ListByTag)
	r.GET("/population-chart", chartController.PopulationChart)
	r.GET("/stats", chartController.GetStats)

	// The like widget calls with GET or POST; anonymous callers get a
	// prompt, so auth stays optional.
	r.GET("/like", middleware.AuthOptional(), likeController.Toggle)
	r.POST("/like", middleware.AuthOptional(), likeController.Toggle)

	accounts := r.Group("/accounts")
	accounts.Use(middleware.RateLimitMiddleware())
	accounts.POST("/signup", authController.Signup)
	accounts.POST("/login", authController.Login)
	accounts.POST("/logout", middleware.AuthRequired(), authController.Logout)
	accounts.GET("/me", middleware.AuthRequired(), authController.Me)
	accounts.GET("/profile", middleware.AuthRequired(), authController.Profile)
	accounts.GET("/profile/:id", authController.Profile)
	accounts.POST("/profile/update", middleware.AuthRequired(), authController.UpdateProfile)

	protected := r.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/new", postController.CreatePost)
	protected.POST("/upload", postController.UploadPhoto)
	protected.POST("/:id/edit", postController.UpdatePost)
	protected.POST("/:id/delete", postController.DeletePost)
	protected.POST("/:id/review/new", reviewController.CreateReview)
	protected.POST("/:id/review/edit/:review_id", reviewController.EditReview)
	protected.POST("/:id/review/delete/:review_id", reviewController.DeleteReview)
	protected.POST("/:id/:review_id/review/new", reviewController.CreateReReview)
	protected.POST("/:id/:review_id/review/edit/:rereview_id", reviewController.EditReReview)
	protected.POST("/:id/:review_id/review/delete/:rereview_id", reviewController.DeleteReReview)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
