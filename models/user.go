package models

import (
	"errors"
	"regexp"
	"time"

	"gorm.io/gorm"
)

// phone numbers: optional leading +, 9-15 digits
var phoneRe = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// ErrInvalidPhoneNumber is returned when a phone number fails validation.
var ErrInvalidPhoneNumber = errors.New("phone number must be entered in the format '+999999999', up to 15 digits allowed")

// User is a journal account. Username always mirrors the signup email and
// passwords are stored as bcrypt hashes only.
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Username      string         `gorm:"size:255;uniqueIndex;not null" json:"username"`
	Email         string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash  string         `gorm:"size:255" json:"-"`
	FirstName     string         `gorm:"size:64" json:"first_name"`
	LastName      string         `gorm:"size:64" json:"last_name"`
	PhoneNumber   string         `gorm:"size:17" json:"phone_number"`
	EmailVerified bool           `gorm:"default:false" json:"email_verified"`
	AvatarURL     string         `gorm:"size:512" json:"avatar_url"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Posts []Post `gorm:"foreignKey:AuthorID" json:"-"`
	Likes []Like `json:"-"`
}

// ValidatePhoneNumber checks the profile phone number format. Empty is allowed.
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return nil
	}
	if !phoneRe.MatchString(phone) {
		return ErrInvalidPhoneNumber
	}
	return nil
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate refreshes the UpdatedAt timestamp.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
