package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sgd0947/journal/config"
	"github.com/sgd0947/journal/models"
	"github.com/sgd0947/journal/utils"
)

const sessionDuration = 72 * time.Hour

// AuthController handles signup, login and profile endpoints.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Signup registers a new account. The username always mirrors the email, so
// signup only asks for the email once.
func (a *AuthController) Signup(ctx *gin.Context) {
	var req struct {
		Email           string `form:"email" json:"email" binding:"required,email"`
		Password        string `form:"password1" json:"password" binding:"required"`
		PasswordConfirm string `form:"password2" json:"password_confirm" binding:"required"`
		FirstName       string `form:"first_name" json:"first_name"`
		LastName        string `form:"last_name" json:"last_name"`
		PhoneNumber     string `form:"phone_number" json:"phone_number"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.Password) < 8 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "password must be at least 8 characters")
		return
	}
	if req.Password != req.PasswordConfirm {
		utils.Error(ctx, http.StatusBadRequest, 40003, "passwords do not match")
		return
	}
	if err := models.ValidatePhoneNumber(strings.TrimSpace(req.PhoneNumber)); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	var count int64
	if err := a.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to check email")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusConflict, 40901, "a user with that email already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to hash password")
		return
	}

	user := models.User{
		Username:     email,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
	}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusConflict, 40901, "a user with that email already exists")
		return
	}

	utils.Success(ctx, sanitizeUserResponse(user))
}

// Login exchanges email+password for a JWT. Unknown account and wrong password
// produce distinct messages, matching the original login form.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `form:"username" json:"email" binding:"required"`
		Password string `form:"password" json:"password" binding:"required"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid request payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "user does not exist")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to load user")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "wrong password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, sessionDuration)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  sanitizeUserResponseWithStaff(user),
	})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "invalid authorization header")
		return
	}

	token := strings.TrimSpace(parts[1])
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(sessionDuration)
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}

	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated account.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}

	utils.Success(ctx, sanitizeUserResponseWithStaff(user))
}

// Profile returns a user's profile together with the posts they liked. With no
// :id param it shows the authenticated caller's own profile.
func (a *AuthController) Profile(ctx *gin.Context) {
	var userID uint
	if idStr := ctx.Param("id"); idStr != "" {
		id, ok := parseUintParam(ctx, "id")
		if !ok {
			utils.Error(ctx, http.StatusBadRequest, 40006, "invalid user id")
			return
		}
		userID = id
	} else {
		id, ok := getUserID(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
			return
		}
		userID = id
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to load user")
		return
	}

	var likedPosts []models.Post
	if err := a.db.
		Select("posts.*, "+likeCountExpr+" AS like_count").
		Joins("JOIN likes ON likes.post_id = posts.id").
		Where("likes.user_id = ?", user.ID).
		Order("posts.id DESC").
		Preload("Author").
		Find(&likedPosts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to load liked posts")
		return
	}

	utils.Success(ctx, gin.H{
		"user":        sanitizeUserResponse(user),
		"liked_posts": likedPosts,
	})
}

// UpdateProfile lets the authenticated user change profile fields.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		FirstName     *string `form:"first_name" json:"first_name"`
		LastName      *string `form:"last_name" json:"last_name"`
		PhoneNumber   *string `form:"phone_number" json:"phone_number"`
		AvatarURL     *string `form:"avatar_url" json:"avatar_url"`
		EmailVerified *bool   `form:"email_verified" json:"email_verified"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.PhoneNumber != nil {
		phone := strings.TrimSpace(*req.PhoneNumber)
		if err := models.ValidatePhoneNumber(phone); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
			return
		}
		user.PhoneNumber = phone
	}
	if req.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}
	if req.EmailVerified != nil {
		user.EmailVerified = *req.EmailVerified
	}

	if err := a.db.Save(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50007, "failed to update profile")
		return
	}

	utils.Success(ctx, sanitizeUserResponseWithStaff(user))
}

func sanitizeUserResponse(user models.User) gin.H {
	return gin.H{
		"id":             user.ID,
		"username":       user.Username,
		"email":          user.Email,
		"first_name":     user.FirstName,
		"last_name":      user.LastName,
		"phone_number":   user.PhoneNumber,
		"email_verified": user.EmailVerified,
		"avatar_url":     user.AvatarURL,
		"created_at":     user.CreatedAt,
	}
}

// sanitizeUserResponseWithStaff includes is_staff for authenticated responses.
func sanitizeUserResponseWithStaff(user models.User) gin.H {
	m := sanitizeUserResponse(user)
	m["is_staff"] = isStaffUsername(user.Username)
	return m
}

// isStaffUsername checks whether given username is configured as staff (case-insensitive).
func isStaffUsername(username string) bool {
	uname := strings.TrimSpace(username)
	if uname == "" {
		return false
	}
	cfg := config.Get()
	for _, u := range cfg.StaffUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}
