package controllers

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sgd0947/journal/config"
	"github.com/sgd0947/journal/models"
	"github.com/sgd0947/journal/utils"
)

// likeCountExpr orders and fills like counts without a second round trip.
const likeCountExpr = "(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id)"

// PostController manages journal entries: CRUD, listing, tags, photo export.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

type photoInput struct {
	URL     string `form:"url" json:"url"`
	Caption string `form:"caption" json:"caption"`
}

// ListPosts returns the paginated post listing. Supports `query` (title
// substring, case-insensitive), `sort` (post | like | mypost) and `page`.
// Unknown params fall back to defaults, out-of-range pages clamp.
func (p *PostController) ListPosts(ctx *gin.Context) {
	query := strings.TrimSpace(ctx.Query("query"))
	sort := ctx.Query("sort")
	if sort != "like" && sort != "mypost" {
		sort = "post"
	}
	page := parsePage(ctx.Query("page"))

	// Anonymous "my posts" cannot be resolved; fall back to default sort.
	userID, authed := getUserID(ctx)
	if sort == "mypost" && !authed {
		sort = "post"
	}

	cacheKey := ""
	if query == "" && sort != "mypost" {
		cacheKey = fmt.Sprintf("cache:posts:list:sort=%s:page=%d", sort, page)
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	base := p.db.Model(&models.Post{})
	if query != "" {
		base = base.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(query)+"%")
	}
	if sort == "mypost" {
		base = base.Where("author_id = ?", userID)
	}

	order := "posts.id DESC"
	if sort == "like" {
		order = likeCountExpr + " DESC, posts.id DESC"
	}

	payload, err := p.listPage(base, order, page)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list posts")
		return
	}

	if cacheKey != "" {
		wrapper := struct {
			Code    int         `json:"code"`
			Message string      `json:"message"`
			Data    interface{} `json:"data"`
		}{Code: 0, Message: "success", Data: payload}
		utils.CacheSetJSON(cacheKey, wrapper, time.Hour)
	}
	utils.Success(ctx, payload)
}

// listPage runs the shared pagination pipeline over a prepared post query.
func (p *PostController) listPage(base *gorm.DB, order string, page int) (gin.H, error) {
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	totalPages := int((total + pageSize - 1) / pageSize)
	page = clampPage(page, totalPages)

	var posts []models.Post
	if err := base.Session(&gorm.Session{}).
		Select("posts.*, " + likeCountExpr + " AS like_count").
		Order(order).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Preload("Author").
		Preload("Tags").
		Preload("Photos").
		Find(&posts).Error; err != nil {
		return nil, err
	}

	return gin.H{
		"items": posts,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
			"page_strip":  pageStrip(page, totalPages),
		},
	}, nil
}

// GetPost returns one post with author, tags, photos, reviews and like count.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid post id")
		return
	}

	var post models.Post
	if err := p.db.
		Select("posts.*, "+likeCountExpr+" AS like_count").
		Preload("Author").
		Preload("Tags").
		Preload("Photos").
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("reviews.id ASC") }).
		Preload("Reviews.Author").
		Preload("Reviews.ReReviews", func(db *gorm.DB) *gorm.DB { return db.Order("re_reviews.id ASC") }).
		Preload("Reviews.ReReviews.Author").
		First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}

	utils.Success(ctx, gin.H{"post": post})
}

// CreatePost creates a journal entry. Post row, tag links and photo rows all
// commit in one transaction; a failing photo rolls back everything. The new
// entry is announced by mail to verified users after the commit.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Title   string       `form:"title" json:"title" binding:"required"`
		Content string       `form:"content" json:"content" binding:"required"`
		Tags    []string     `form:"tags" json:"tags"`
		Photos  []photoInput `json:"photos"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}

	post := models.Post{
		AuthorID: userID,
		Title:    utils.Sanitize(strings.TrimSpace(req.Title)),
		Content:  utils.Sanitize(req.Content),
	}
	if err := post.Validate(); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, err.Error())
		return
	}

	photos := make([]models.Photo, 0, len(req.Photos))
	for _, in := range req.Photos {
		photos = append(photos, models.Photo{
			URL:      strings.TrimSpace(in.URL),
			Caption:  utils.Sanitize(strings.TrimSpace(in.Caption)),
			FilePath: localPathForURL(in.URL),
		})
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		if err := attachTags(tx, &post, req.Tags); err != nil {
			return err
		}
		for i := range photos {
			if err := photos[i].Validate(); err != nil {
				return err
			}
			photos[i].PostID = post.ID
			if err := tx.Create(&photos[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrPhotoFileMissing) {
			utils.Error(ctx, http.StatusBadRequest, 40023, err.Error())
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	go p.notifyNewPost(post)

	post.Photos = photos
	utils.Success(ctx, gin.H{"post": post})
}

// UpdatePost edits a post the caller owns (staff may edit any). Same
// transactional shape as create, without the notification.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid post id")
		return
	}

	var post models.Post
	if err := p.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}

	userID, _ := getUserID(ctx)
	if post.AuthorID != userID && !isStaff(ctx) {
		p.denyPostAccess(ctx, post.ID, "you cannot modify another user's post")
		return
	}

	var req struct {
		Title   string        `form:"title" json:"title" binding:"required"`
		Content string        `form:"content" json:"content" binding:"required"`
		Tags    *[]string     `form:"tags" json:"tags"`
		Photos  *[]photoInput `json:"photos"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}

	post.Title = utils.Sanitize(strings.TrimSpace(req.Title))
	post.Content = utils.Sanitize(req.Content)
	if err := post.Validate(); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, err.Error())
		return
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&post).Error; err != nil {
			return err
		}
		if req.Tags != nil {
			if err := tx.Model(&post).Association("Tags").Clear(); err != nil {
				return err
			}
			if err := attachTags(tx, &post, *req.Tags); err != nil {
				return err
			}
		}
		if req.Photos != nil {
			if err := tx.Where("post_id = ?", post.ID).Delete(&models.Photo{}).Error; err != nil {
				return err
			}
			for _, in := range *req.Photos {
				photo := models.Photo{
					PostID:   post.ID,
					URL:      strings.TrimSpace(in.URL),
					Caption:  utils.Sanitize(strings.TrimSpace(in.Caption)),
					FilePath: localPathForURL(in.URL),
				}
				if err := photo.Validate(); err != nil {
					return err
				}
				if err := tx.Create(&photo).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrPhotoFileMissing) {
			utils.Error(ctx, http.StatusBadRequest, 40023, err.Error())
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost removes a post after the caller re-enters their password. All
// dependent rows (photos, reviews and their replies, likes, tag links) go
// away in the same transaction.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid post id")
		return
	}

	userID, authed := getUserID(ctx)
	if !authed {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var post models.Post
	if err := p.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}

	if post.AuthorID != userID && !isStaff(ctx) {
		p.denyPostAccess(ctx, post.ID, "you cannot delete another user's post")
		return
	}

	var req struct {
		Password string `form:"password" json:"password" binding:"required"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "password confirmation required")
		return
	}

	var caller models.User
	if err := p.db.First(&caller, userID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load user")
		return
	}
	if !utils.CheckPassword(caller.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusForbidden, 40303, "wrong password")
		return
	}

	var photos []models.Photo
	if err := p.db.Where("post_id = ?", post.ID).Find(&photos).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to load photos")
		return
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		var reviewIDs []uint
		if err := tx.Model(&models.Review{}).Where("post_id = ?", post.ID).
			Pluck("id", &reviewIDs).Error; err != nil {
			return err
		}
		if len(reviewIDs) > 0 {
			if err := tx.Where("review_id IN ?", reviewIDs).Delete(&models.ReReview{}).Error; err != nil {
				return err
			}
			if err := tx.Where("post_id = ?", post.ID).Delete(&models.Review{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&post).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to delete post")
		return
	}

	// Files are best-effort; the rows are already gone.
	for _, photo := range photos {
		if photo.FilePath != "" {
			_ = os.Remove(photo.FilePath)
		}
	}

	utils.InvalidateByPrefix("cache:posts:list:")

	if isAjax(ctx) {
		utils.Success(ctx, gin.H{"message": "post deleted"})
		return
	}
	ctx.Redirect(http.StatusFound, "/")
}

// PostNext redirects to the next post by id, or back when already newest.
func (p *PostController) PostNext(ctx *gin.Context) {
	p.redirectAdjacent(ctx, true)
}

// PostPrev redirects to the previous post by id, or back when already oldest.
func (p *PostController) PostPrev(ctx *gin.Context) {
	p.redirectAdjacent(ctx, false)
}

func (p *PostController) redirectAdjacent(ctx *gin.Context, next bool) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid post id")
		return
	}

	q := p.db.Model(&models.Post{})
	if next {
		q = q.Where("id > ?", id).Order("id ASC")
	} else {
		q = q.Where("id < ?", id).Order("id DESC")
	}

	var adjacent models.Post
	if err := q.First(&adjacent).Error; err != nil {
		// Stay where we are at either end of the journal.
		ctx.Redirect(http.StatusFound, fmt.Sprintf("/%d/", id))
		return
	}
	ctx.Redirect(http.StatusFound, fmt.Sprintf("/%d/", adjacent.ID))
}

// PostReviews dumps a post's reviews with nested replies as JSON.
func (p *PostController) PostReviews(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid post id")
		return
	}

	var reviews []models.Review
	if err := p.db.Where("post_id = ?", id).
		Order("id ASC").
		Preload("Author").
		Preload("ReReviews", func(db *gorm.DB) *gorm.DB { return db.Order("re_reviews.id ASC") }).
		Preload("ReReviews.Author").
		Find(&reviews).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load reviews")
		return
	}

	utils.Success(ctx, gin.H{"reviews": reviews})
}

// DownloadPhotos streams the post's photos as a zip archive named
// export-<YYYYMMDD>-<post id>-photos.zip.
func (p *PostController) DownloadPhotos(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid post id")
		return
	}

	var photos []models.Photo
	if err := p.db.Where("post_id = ?", id).Find(&photos).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to load photos")
		return
	}
	if len(photos) == 0 {
		utils.Error(ctx, http.StatusNotFound, 40402, "post has no photos")
		return
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, photo := range photos {
		if photo.FilePath == "" {
			continue
		}
		f, err := os.Open(photo.FilePath)
		if err != nil {
			utils.Sugar.Warnf("photo export skipping %s: %v", photo.FilePath, err)
			continue
		}
		w, err := zw.Create(filepath.Base(photo.FilePath))
		if err == nil {
			_, err = io.Copy(w, f)
		}
		f.Close()
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to build archive")
			return
		}
	}
	if err := zw.Close(); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to build archive")
		return
	}

	filename := fmt.Sprintf("export-%s-%d-photos.zip", time.Now().Format("20060102"), id)
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// UploadPhoto stores an uploaded image and returns its public URL for a later
// create or edit call to reference.
func (p *PostController) UploadPhoto(ctx *gin.Context) {
	if _, ok := getUserID(ctx); !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40025, "no file uploaded")
		return
	}
	defer file.Close()

	const maxSize = 20 * 1024 * 1024
	if header.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40026, "file size exceeds 20MB")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		utils.Error(ctx, http.StatusBadRequest, 40027, "unsupported image type")
		return
	}

	now := time.Now()
	relDir := filepath.Join("journal", "post", now.Format("2006"), now.Format("01"))
	baseDir := filepath.Join(config.Get().UploadDir, relDir)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to create upload directory")
		return
	}

	name := uuid.NewString() + ext
	dstPath := filepath.Join(baseDir, name)
	out, err := os.Create(dstPath)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to save file")
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(file, maxSize)); err != nil {
		_ = os.Remove(dstPath)
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to write file")
		return
	}

	url := "/" + filepath.ToSlash(dstPath)
	utils.Success(ctx, gin.H{"url": url})
}

// ListByTag is the post listing filtered by one tag name.
func (p *PostController) ListByTag(ctx *gin.Context) {
	name := strings.TrimSpace(ctx.Param("name"))
	if name == "" {
		utils.Error(ctx, http.StatusBadRequest, 40028, "missing tag name")
		return
	}
	page := parsePage(ctx.Query("page"))

	base := p.db.Model(&models.Post{}).
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("tags.name = ?", name)

	payload, err := p.listPage(base, "posts.id DESC", page)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list posts")
		return
	}
	payload["tag"] = name
	utils.Success(ctx, payload)
}

// TagCloud returns every tag with its post count, busiest first.
func (p *PostController) TagCloud(ctx *gin.Context) {
	var tags []struct {
		Name  string `json:"name"`
		Count int64  `json:"count"`
	}
	if err := p.db.Model(&models.Tag{}).
		Select("tags.name, COUNT(post_tags.post_id) AS count").
		Joins("LEFT JOIN post_tags ON post_tags.tag_id = tags.id").
		Group("tags.id").
		Order("count DESC, tags.name ASC").
		Scan(&tags).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to load tags")
		return
	}
	utils.Success(ctx, gin.H{"tags": tags})
}

// denyPostAccess answers an authorization failure: ajax callers get a 403
// message, plain callers are bounced back to the post with a warning.
func (p *PostController) denyPostAccess(ctx *gin.Context, postID uint, message string) {
	if isAjax(ctx) {
		utils.AjaxMessage(ctx, http.StatusForbidden, message)
		return
	}
	ctx.Redirect(http.StatusFound, fmt.Sprintf("/%d/?warning=%s", postID, "forbidden"))
}

// notifyNewPost mails every verified user a link to the new entry. Runs in a
// goroutine after the create transaction commits; failures only get logged.
func (p *PostController) notifyNewPost(post models.Post) {
	defer func() {
		if r := recover(); r != nil {
			utils.Sugar.Errorf("new post notification panic: %v", r)
		}
	}()

	var emails []string
	if err := p.db.Model(&models.User{}).
		Where("email_verified = ?", true).
		Pluck("email", &emails).Error; err != nil {
		utils.Sugar.Errorf("notification recipient query failed: %v", err)
		return
	}
	emails = utils.UniqueStrings(emails)
	if len(emails) == 0 {
		return
	}

	cfg := config.Get()
	link := strings.TrimRight(cfg.SiteBaseURL, "/") + fmt.Sprintf("/%d/", post.ID)
	subject := fmt.Sprintf("New journal entry: %s", post.Title)
	body := fmt.Sprintf("<p>A new journal entry was published.</p><p><a href=%q>%s</a></p>", link, link)

	if err := utils.SendMail(emails, subject, body); err != nil {
		utils.Sugar.Errorf("new post notification failed: %v", err)
	}
}

func attachTags(tx *gorm.DB, post *models.Post, names []string) error {
	for _, raw := range utils.UniqueStrings(names) {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		var tag models.Tag
		if err := tx.Where("name = ?", name).FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
			return err
		}
		if err := tx.Model(post).Association("Tags").Append(&tag); err != nil {
			return err
		}
	}
	return nil
}

// localPathForURL maps a /static/... URL back to the on-disk file it serves.
// Foreign URLs have no local file.
func localPathForURL(url string) string {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "/static/") {
		return ""
	}
	return filepath.FromSlash(strings.TrimPrefix(url, "/"))
}
