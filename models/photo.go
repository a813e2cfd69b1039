package models

import (
	"errors"
	"time"
)

// ErrPhotoFileMissing rejects a photo without an uploaded file reference. The
// check runs inside the post creation transaction so a bad photo rolls back
// the whole post.
var ErrPhotoFileMissing = errors.New("photo is missing its uploaded file")

// Photo belongs to exactly one post and is removed together with it.
type Photo struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	FilePath  string    `gorm:"size:512" json:"-"`
	URL       string    `gorm:"size:512;not null" json:"url"`
	Caption   string    `gorm:"size:80" json:"caption"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate ensures the photo references an uploaded file.
func (p *Photo) Validate() error {
	if p.URL == "" {
		return ErrPhotoFileMissing
	}
	return nil
}
