package models

import "time"

// Client-facing status strings for the like toggle.
const (
	LikeAddedMessage   = "like success"
	LikeRemovedMessage = "like canceled"
	LikeLoginMessage   = "please log in"
)

// Like records one user having favorited one post. The composite unique index
// enforces at the storage layer what the toggle logic assumes: at most one row
// per (post, user) pair.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ToggleOutcome is the result of flipping a user's membership in a post's
// like set. It is a plain value, independent of any request or session state.
type ToggleOutcome struct {
	Member    bool
	LikeCount int64
	Message   string
}

// ToggleLike computes the next membership state for a (user, post) pair given
// the current membership and like count.
func ToggleLike(member bool, count int64) ToggleOutcome {
	if member {
		return ToggleOutcome{Member: false, LikeCount: count - 1, Message: LikeRemovedMessage}
	}
	return ToggleOutcome{Member: true, LikeCount: count + 1, Message: LikeAddedMessage}
}
