package models

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// TitleMinLen matches the original journal validation: a post title must
	// carry at least ten characters; exactly ten is accepted.
	TitleMinLen = 10
	// TitleMaxLen caps the title column.
	TitleMaxLen = 100
)

var (
	ErrTitleTooShort = errors.New("title must be at least 10 characters long")
	ErrTitleTooLong  = errors.New("title must be at most 100 characters long")
	ErrContentEmpty  = errors.New("content cannot be empty")
)

// Post is a journal entry created by a user. Natural ordering is newest id first.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Title     string    `gorm:"size:100;not null;index" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	PostHit   uint      `gorm:"default:0" json:"post_hit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// LikeCount is filled by queries, never stored.
	LikeCount int64 `gorm:"->;-:migration" json:"like_count"`

	Author  User     `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Tags    []Tag    `gorm:"many2many:post_tags;" json:"tags"`
	Photos  []Photo  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"photos"`
	Reviews []Review `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reviews,omitempty"`
	Likes   []Like   `json:"-"`
}

// Validate applies the field rules the original form enforced. Lengths are
// counted in runes, not bytes, so multibyte titles behave correctly.
func (p *Post) Validate() error {
	title := strings.TrimSpace(p.Title)
	switch l := utf8.RuneCountInString(title); {
	case l < TitleMinLen:
		return ErrTitleTooShort
	case l > TitleMaxLen:
		return ErrTitleTooLong
	}
	if strings.TrimSpace(p.Content) == "" {
		return ErrContentEmpty
	}
	return nil
}

// Tag is a free-form label attached to posts, created on demand.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}
