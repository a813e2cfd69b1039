package main

import (
	"time"

	"github.com/sgd0947/journal/config"
	"github.com/sgd0947/journal/models"
	"github.com/sgd0947/journal/routes"
	"github.com/sgd0947/journal/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Post{},
		&models.Tag{},
		&models.Photo{},
		&models.Review{},
		&models.ReReview{},
		&models.Like{},
	)

	r := routes.SetupRouter(db)

	// Background sweep for uploads no post references anymore (best-effort)
	utils.StartUploadCleaner(time.Hour)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
