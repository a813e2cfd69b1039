package models

import (
	"errors"
	"time"
)

var (
	ErrMessageEmpty = errors.New("message cannot be empty")
	// ErrReviewHasReplies refuses deletion of a review while replies still
	// reference it. The caller surfaces this as a non-fatal warning.
	ErrReviewHasReplies = errors.New("cannot delete a review that still has replies")
)

// Review is a top-level comment on a post. Reviews go away with their post,
// but a review itself is protected from deletion while ReReviews reference it.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author    User       `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	ReReviews []ReReview `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"rereviews,omitempty"`
}

// ReReview is a single-level reply to a review.
type ReReview struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReviewID  uint      `gorm:"index;not null" json:"review_id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author User `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}
