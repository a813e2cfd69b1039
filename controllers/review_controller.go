package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sgd0947/journal/models"
	"github.com/sgd0947/journal/utils"
)

// ReviewController manages post comments (reviews) and their single-level
// replies (rereviews). Every mutation answers in one of two modes: ajax
// callers get JSON, plain form posts get a redirect back to the post.
type ReviewController struct {
	db *gorm.DB
}

// NewReviewController creates a new ReviewController instance.
func NewReviewController(db *gorm.DB) *ReviewController {
	return &ReviewController{db: db}
}

func (r *ReviewController) bindMessage(ctx *gin.Context) (string, bool) {
	var req struct {
		Message string `form:"message" json:"message" binding:"required"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		r.fail(ctx, http.StatusBadRequest, models.ErrMessageEmpty.Error())
		return "", false
	}
	message := utils.Sanitize(strings.TrimSpace(req.Message))
	if message == "" {
		r.fail(ctx, http.StatusBadRequest, models.ErrMessageEmpty.Error())
		return "", false
	}
	return message, true
}

// CreateReview adds a top-level comment to a post.
func (r *ReviewController) CreateReview(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		r.fail(ctx, http.StatusBadRequest, "invalid post id")
		return
	}
	userID, authed := getUserID(ctx)
	if !authed {
		r.fail(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	message, ok := r.bindMessage(ctx)
	if !ok {
		return
	}

	var post models.Post
	if err := r.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.fail(ctx, http.StatusNotFound, "post not found")
			return
		}
		r.fail(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}

	review := models.Review{PostID: post.ID, AuthorID: userID, Message: message}
	if err := r.db.Create(&review).Error; err != nil {
		r.fail(ctx, http.StatusInternalServerError, "failed to create review")
		return
	}

	r.succeed(ctx, post.ID, "review created")
}

// CreateReReview adds a reply under an existing review.
func (r *ReviewController) CreateReReview(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		r.fail(ctx, http.StatusBadRequest, "invalid post id")
		return
	}
	userID, authed := getUserID(ctx)
	if !authed {
		r.fail(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	message, ok := r.bindMessage(ctx)
	if !ok {
		return
	}

	review, ok := r.loadReview(ctx, postID, "review_id")
	if !ok {
		return
	}

	reply := models.ReReview{ReviewID: review.ID, AuthorID: userID, Message: message}
	if err := r.db.Create(&reply).Error; err != nil {
		r.fail(ctx, http.StatusInternalServerError, "failed to create reply")
		return
	}

	r.succeed(ctx, postID, "reply created")
}

// EditReview updates a review's message (author or staff only).
func (r *ReviewController) EditReview(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		r.fail(ctx, http.StatusBadRequest, "invalid post id")
		return
	}
	review, ok := r.loadReview(ctx, postID, "review_id")
	if !ok {
		return
	}

	userID, _ := getUserID(ctx)
	if review.AuthorID != userID && !isStaff(ctx) {
		r.deny(ctx, postID, "you cannot modify another user's review")
		return
	}

	message, ok := r.bindMessage(ctx)
	if !ok {
		return
	}

	review.Message = message
	if err := r.db.Save(review).Error; err != nil {
		r.fail(ctx, http.StatusInternalServerError, "failed to update review")
		return
	}

	r.succeed(ctx, postID, "review updated")
}

// EditReReview updates a reply's message (author or staff only).
func (r *ReviewController) EditReReview(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		r.fail(ctx, http.StatusBadRequest, "invalid post id")
		return
	}
	reply, ok := r.loadReReview(ctx, postID)
	if !ok {
		return
	}

	userID, _ := getUserID(ctx)
	if reply.AuthorID != userID && !isStaff(ctx) {
		r.deny(ctx, postID, "you cannot modify another user's reply")
		return
	}

	message, ok := r.bindMessage(ctx)
	if !ok {
		return
	}

	reply.Message = message
	if err := r.db.Save(reply).Error; err != nil {
		r.fail(ctx, http.StatusInternalServerError, "failed to update reply")
		return
	}

	r.succeed(ctx, postID, "reply updated")
}

// DeleteReview removes a review. A review that still has replies is
// protected: the request is refused and nothing changes.
func (r *ReviewController) DeleteReview(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		r.fail(ctx, http.StatusBadRequest, "invalid post id")
		return
	}
	review, ok := r.loadReview(ctx, postID, "review_id")
	if !ok {
		return
	}

	userID, _ := getUserID(ctx)
	if review.AuthorID != userID && !isStaff(ctx) {
		r.deny(ctx, postID, "you cannot delete another user's review")
		return
	}

	var replies int64
	if err := r.db.Model(&models.ReReview{}).
		Where("review_id = ?", review.ID).Count(&replies).Error; err != nil {
		r.fail(ctx, http.StatusInternalServerError, "failed to check replies")
		return
	}
	if replies > 0 {
		// Warning, not a crash: both rows stay.
		ctx.JSON(http.StatusForbidden, gin.H{"error": models.ErrReviewHasReplies.Error()})
		return
	}

	if err := r.db.Delete(review).Error; err != nil {
		r.fail(ctx, http.StatusInternalServerError, "failed to delete review")
		return
	}

	r.succeed(ctx, postID, "review deleted")
}

// DeleteReReview removes a reply. Replies have no children, so deletion
// always succeeds once authorized.
func (r *ReviewController) DeleteReReview(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		r.fail(ctx, http.StatusBadRequest, "invalid post id")
		return
	}
	reply, ok := r.loadReReview(ctx, postID)
	if !ok {
		return
	}

	userID, _ := getUserID(ctx)
	if reply.AuthorID != userID && !isStaff(ctx) {
		r.deny(ctx, postID, "you cannot delete another user's reply")
		return
	}

	if err := r.db.Delete(reply).Error; err != nil {
		r.fail(ctx, http.StatusInternalServerError, "failed to delete reply")
		return
	}

	r.succeed(ctx, postID, "reply deleted")
}

// ListReviews returns every review, newest first, with authors and replies.
func (r *ReviewController) ListReviews(ctx *gin.Context) {
	page := parsePage(ctx.Query("page"))

	var total int64
	if err := r.db.Model(&models.Review{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to count reviews")
		return
	}
	totalPages := int((total + pageSize - 1) / pageSize)
	page = clampPage(page, totalPages)

	var reviews []models.Review
	if err := r.db.Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Preload("Author").
		Preload("ReReviews.Author").
		Find(&reviews).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to list reviews")
		return
	}

	utils.Success(ctx, gin.H{
		"items": reviews,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
			"page_strip":  pageStrip(page, totalPages),
		},
	})
}

// loadReview fetches the :review_id review and checks it belongs to the post.
func (r *ReviewController) loadReview(ctx *gin.Context, postID uint, param string) (*models.Review, bool) {
	reviewID, ok := parseUintParam(ctx, param)
	if !ok {
		r.fail(ctx, http.StatusBadRequest, "invalid review id")
		return nil, false
	}
	var review models.Review
	if err := r.db.First(&review, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.fail(ctx, http.StatusNotFound, "review not found")
			return nil, false
		}
		r.fail(ctx, http.StatusInternalServerError, "failed to load review")
		return nil, false
	}
	if review.PostID != postID {
		r.fail(ctx, http.StatusNotFound, "review not found")
		return nil, false
	}
	return &review, true
}

// loadReReview fetches the :rereview_id reply and checks its lineage back to
// the post through the :review_id parent.
func (r *ReviewController) loadReReview(ctx *gin.Context, postID uint) (*models.ReReview, bool) {
	review, ok := r.loadReview(ctx, postID, "review_id")
	if !ok {
		return nil, false
	}
	replyID, ok := parseUintParam(ctx, "rereview_id")
	if !ok {
		r.fail(ctx, http.StatusBadRequest, "invalid reply id")
		return nil, false
	}
	var reply models.ReReview
	if err := r.db.First(&reply, replyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.fail(ctx, http.StatusNotFound, "reply not found")
			return nil, false
		}
		r.fail(ctx, http.StatusInternalServerError, "failed to load reply")
		return nil, false
	}
	if reply.ReviewID != review.ID {
		r.fail(ctx, http.StatusNotFound, "reply not found")
		return nil, false
	}
	return &reply, true
}

// succeed reports a completed mutation: JSON message for ajax, redirect back
// to the post for plain form posts.
func (r *ReviewController) succeed(ctx *gin.Context, postID uint, message string) {
	if isAjax(ctx) {
		utils.AjaxMessage(ctx, http.StatusOK, message)
		return
	}
	ctx.Redirect(http.StatusFound, fmt.Sprintf("/%d/", postID))
}

// deny reports an authorization failure in the caller's mode.
func (r *ReviewController) deny(ctx *gin.Context, postID uint, message string) {
	if isAjax(ctx) {
		utils.AjaxMessage(ctx, http.StatusForbidden, message)
		return
	}
	ctx.Redirect(http.StatusFound, fmt.Sprintf("/%d/?warning=%s", postID, "forbidden"))
}

// fail reports a validation or lookup failure in the caller's mode.
func (r *ReviewController) fail(ctx *gin.Context, status int, message string) {
	if isAjax(ctx) {
		utils.AjaxMessage(ctx, status, message)
		return
	}
	utils.Error(ctx, status, status*100, message)
}
