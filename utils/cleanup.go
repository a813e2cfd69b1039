package utils

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sgd0947/journal/config"
	"github.com/sgd0947/journal/models"
)

const orphanMinAge = 24 * time.Hour

// StartUploadCleaner launches a background goroutine that periodically removes
// uploaded photo files no longer referenced by any photo row. Files younger
// than a day are skipped so in-progress post edits keep their uploads.
// It is best-effort and logs failures.
func StartUploadCleaner(interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			sweepOrphanUploads()
		}
	}()
}

func sweepOrphanUploads() {
	db := config.DB()
	if db == nil {
		return
	}
	root := config.Get().UploadDir
	if root == "" {
		return
	}

	cutoff := time.Now().Add(-orphanMinAge)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		var n int64
		rel := filepath.ToSlash(path)
		if err := db.Model(&models.Photo{}).
			Where("file_path = ? OR url LIKE ?", path, "%"+strings.TrimPrefix(rel, ".")).
			Count(&n).Error; err != nil {
			Sugar.Errorf("upload cleaner query failed: %v", err)
			return nil
		}
		if n == 0 {
			if rmErr := os.Remove(path); rmErr != nil {
				Sugar.Errorf("upload cleaner remove %s failed: %v", path, rmErr)
			} else {
				Sugar.Infof("upload cleaner removed orphan %s", path)
			}
		}
		return nil
	})
	if err != nil {
		Sugar.Errorf("upload cleaner walk failed: %v", err)
	}
}
