package routes

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sgd0947/journal/models"
	"github.com/sgd0947/journal/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("CACHE_DISABLED", "1")
	os.Setenv("GIN_MODE", "test")
	os.Setenv("RATE_LIMIT_PER_MINUTE", "100000")
	os.Setenv("STAFF_USERNAMES", "staff@example.com")
	os.Setenv("GIN_PATH", filepath.Join(os.TempDir(), "journal_gin_test.log"))
	os.Exit(m.Run())
}

var dbSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routes_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Tag{},
		&models.Photo{},
		&models.Review{},
		&models.ReReview{},
		&models.Like{},
	))
	return db
}

func newTestRouter(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return SetupRouter(db), db
}

func createUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	user := models.User{Username: email, Email: email, PasswordHash: hash}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func authHeader(t *testing.T, user models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Username, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func createPost(t *testing.T, db *gorm.DB, author models.User, title string) models.Post {
	t.Helper()
	post := models.Post{AuthorID: author.ID, Title: title, Content: "some content"}
	require.NoError(t, db.Create(&post).Error)
	return post
}

func perform(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestSignupSetsUsernameToEmail(t *testing.T) {
	r, db := newTestRouter(t)

	w := perform(r, http.MethodPost, "/accounts/signup", map[string]any{
		"email":            "Alice@Example.com",
		"password":         "password123",
		"password_confirm": "password123",
		"first_name":       "Alice",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var user models.User
	require.NoError(t, db.Where("email = ?", "alice@example.com").First(&user).Error)
	assert.Equal(t, user.Email, user.Username)
}

func TestSignupDuplicateEmail(t *testing.T) {
	r, _ := newTestRouter(t)

	payload := map[string]any{
		"email":            "dup@example.com",
		"password":         "password123",
		"password_confirm": "password123",
	}
	w := perform(r, http.MethodPost, "/accounts/signup", payload, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodPost, "/accounts/signup", payload, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decodeEnvelope(t, w).Message, "already exists")
}

func TestSignupRejectsShortPassword(t *testing.T) {
	r, _ := newTestRouter(t)

	w := perform(r, http.MethodPost, "/accounts/signup", map[string]any{
		"email":            "short@example.com",
		"password":         "short",
		"password_confirm": "short",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginDistinguishesUnknownUserFromWrongPassword(t *testing.T) {
	r, db := newTestRouter(t)
	createUser(t, db, "known@example.com")

	w := perform(r, http.MethodPost, "/accounts/login", map[string]any{
		"email": "nobody@example.com", "password": "password123",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "user does not exist", decodeEnvelope(t, w).Message)

	w = perform(r, http.MethodPost, "/accounts/login", map[string]any{
		"email": "known@example.com", "password": "not-the-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "wrong password", decodeEnvelope(t, w).Message)

	w = perform(r, http.MethodPost, "/accounts/login", map[string]any{
		"email": "known@example.com", "password": "password123",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.NotEmpty(t, env.Data["token"])
}

func TestCreatePostTitleBoundary(t *testing.T) {
	r, db := newTestRouter(t)
	user := createUser(t, db, "author@example.com")
	auth := map[string]string{"Authorization": authHeader(t, user)}

	w := perform(r, http.MethodPost, "/new", map[string]any{
		"title": "123456789", "content": "body",
	}, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPost, "/new", map[string]any{
		"title": "1234567890", "content": "body",
	}, auth)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreatePostRollsBackOnBadPhoto(t *testing.T) {
	r, db := newTestRouter(t)
	user := createUser(t, db, "author@example.com")
	auth := map[string]string{"Authorization": authHeader(t, user)}

	w := perform(r, http.MethodPost, "/new", map[string]any{
		"title":   "a perfectly fine title",
		"content": "body",
		"tags":    []string{"travel"},
		"photos":  []map[string]string{{"url": ""}},
	}, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var posts, photos int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Photo{}).Count(&photos).Error)
	assert.Zero(t, posts)
	assert.Zero(t, photos)
}

func TestCreatePostWithTagsAndPhotos(t *testing.T) {
	r, db := newTestRouter(t)
	user := createUser(t, db, "author@example.com")
	auth := map[string]string{"Authorization": authHeader(t, user)}

	w := perform(r, http.MethodPost, "/new", map[string]any{
		"title":   "a post with everything",
		"content": "body",
		"tags":    []string{"travel", "food", "travel"},
		"photos":  []map[string]string{{"url": "https://cdn.example.com/p.jpg", "caption": "hi"}},
	}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var post models.Post
	require.NoError(t, db.Preload("Tags").Preload("Photos").First(&post).Error)
	assert.Len(t, post.Tags, 2) // duplicate tag collapsed
	assert.Len(t, post.Photos, 1)
}

// Delivery fails in the test environment (no mail settings); publishing must
// not care.
func TestCreatePostSucceedsWhenMailUnconfigured(t *testing.T) {
	r, db := newTestRouter(t)
	author := createUser(t, db, "author@example.com")
	reader := createUser(t, db, "reader@example.com")
	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", reader.ID).Update("email_verified", true).Error)

	w := perform(r, http.MethodPost, "/new", map[string]any{
		"title": "announced to everyone now", "content": "body",
	}, map[string]string{"Authorization": authHeader(t, author)})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestListPostsPaginationWindowAndClamp(t *testing.T) {
	r, db := newTestRouter(t)
	user := createUser(t, db, "author@example.com")
	for i := 0; i < 12; i++ {
		createPost(t, db, user, fmt.Sprintf("numbered entry %02d here", i))
	}

	w := perform(r, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	items := env.Data["items"].([]any)
	assert.Len(t, items, 10)
	pg := env.Data["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pg["page"])
	assert.EqualValues(t, 2, pg["total_pages"])
	assert.EqualValues(t, []any{float64(1), float64(2)}, pg["page_strip"])

	// Newest first.
	first := items[0].(map[string]any)
	assert.Equal(t, "numbered entry 11 here", first["title"])

	// Out-of-range page clamps to the last page instead of failing.
	w = perform(r, http.MethodGet, "/?page=99", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env = decodeEnvelope(t, w)
	pg = env.Data["pagination"].(map[string]any)
	assert.EqualValues(t, 2, pg["page"])
	assert.Len(t, env.Data["items"].([]any), 2)
}

func TestListPostsQueryFiltersTitle(t *testing.T) {
	r, db := newTestRouter(t)
	user := createUser(t, db, "author@example.com")
	createPost(t, db, user, "Searching For Mountains")
	createPost(t, db, user, "a day at the beach now")

	w := perform(r, http.MethodGet, "/?query=mountains", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeEnvelope(t, w).Data["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Searching For Mountains", items[0].(map[string]any)["title"])
}

func TestListPostsSortByLikes(t *testing.T) {
	r, db := newTestRouter(t)
	user := createUser(t, db, "author@example.com")
	fan := createUser(t, db, "fan@example.com")
	quiet := createPost(t, db, user, "nobody liked this one!")
	popular := createPost(t, db, user, "everyone liked this one")
	require.NoError(t, db.Create(&models.Like{PostID: popular.ID, UserID: user.ID}).Error)
	require.NoError(t, db.Create(&models.Like{PostID: popular.ID, UserID: fan.ID}).Error)

	w := perform(r, http.MethodGet, "/?sort=like", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeEnvelope(t, w).Data["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.EqualValues(t, popular.ID, first["id"])
	assert.EqualValues(t, 2, first["like_count"])
	assert.EqualValues(t, quiet.ID, items[1].(map[string]any)["id"])
}

func TestListPostsMyPostSort(t *testing.T) {
	r, db := newTestRouter(t)
	mine := createUser(t, db, "mine@example.com")
	other := createUser(t, db, "other@example.com")
	createPost(t, db, mine, "written by the requester")
	createPost(t, db, other, "written by someone else")

	w := perform(r, http.MethodGet, "/?sort=mypost", nil,
		map[string]string{"Authorization": authHeader(t, mine)})
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeEnvelope(t, w).Data["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "written by the requester", items[0].(map[string]any)["title"])

	// Anonymous mypost falls back to the default listing.
	w = perform(r, http.MethodGet, "/?sort=mypost", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeEnvelope(t, w).Data["items"].([]any), 2)
}

func TestGetPostDetailAndHitCounter(t *testing.T) {
	r, db := newTestRouter(t)
	user := createUser(t, db, "author@example.com")
	post := createPost(t, db, user, "a detail view test post")

	w := perform(r, http.MethodGet, fmt.Sprintf("/%d", post.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.EqualValues(t, 1, stored.PostHit)

	perform(r, http.MethodGet, fmt.Sprintf("/%d", post.ID), nil, nil)
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.EqualValues(t, 2, stored.PostHit)
}

func TestUpdatePostForbiddenForStranger(t *testing.T) {
	r, db := newTestRouter(t)
	author := createUser(t, db, "author@example.com")
	stranger := createUser(t, db, "stranger@example.com")
	post := createPost(t, db, author, "only the author may edit")

	body := map[string]any{"title": "changed by someone else!", "content": "x"}
	ajax := map[string]string{
		"Authorization":    authHeader(t, stranger),
		"X-Requested-With": "XMLHttpRequest",
	}
	w := perform(r, http.MethodPost, fmt.Sprintf("/%d/edit", post.ID), body, ajax)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Plain form mode gets bounced back to the post instead.
	w = perform(r, http.MethodPost, fmt.Sprintf("/%d/edit", post.ID), body,
		map[string]string{"Authorization": authHeader(t, stranger)})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), fmt.Sprintf("/%d/", post.ID))

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, post.Title, stored.Title)
}

func TestStaffMayEditAnyPost(t *testing.T) {
	r, db := newTestRouter(t)
	author := createUser(t, db, "author@example.com")
	staff := createUser(t, db, "staff@example.com")
	post := createPost(t, db, author, "staff can touch this one")

	w := perform(r, http.MethodPost, fmt.Sprintf("/%d/edit", post.ID), map[string]any{
		"title": "edited by a staff user", "content": "x",
	}, map[string]string{"Authorization": authHeader(t, staff)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, "edited by a staff user", stored.Title)
}

func TestDeletePostRequiresPasswordAndCascades(t *testing.T) {
	r, db := newTestRouter(t)
	author := createUser(t, db, "author@example.com")
	other := createUser(t, db, "other@example.com")
	post := createPost(t, db, author, "about to be deleted now")
	require.NoError(t, db.Create(&models.Photo{PostID: post.ID, URL: "/static/x.jpg"}).Error)
	review := models.Review{PostID: post.ID, AuthorID: other.ID, Message: "bye"}
	require.NoError(t, db.Create(&review).Error)
	require.NoError(t, db.Create(&models.ReReview{ReviewID: review.ID, AuthorID: author.ID, Message: "indeed"}).Error)
	require.NoError(t, db.Create(&models.Like{PostID: post.ID, UserID: other.ID}).Error)

	ajax := map[string]string{
		"Authorization":    authHeader(t, author),
		"X-Requested-With": "XMLHttpRequest",
	}

	w := perform(r, http.MethodPost, fmt.Sprintf("/%d/delete", post.ID),
		map[string]any{"password": "wrong-password"}, ajax)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	w = perform(r, http.MethodPost, fmt.Sprintf("/%d/delete", post.ID),
		map[string]any{"password": "password123"}, ajax)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, model := range []any{&models.Post{}, &models.Photo{}, &models.Review{}, &models.ReReview{}, &models.Like{}} {
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T rows should be gone", model)
	}
}

func TestReviewCreateAjaxAndRedirectParity(t *testing.T) {
	r, db := newTestRouter(t)
	author := createUser(t, db, "author@example.com")
	post := createPost(t, db, author, "a post people discuss a lot")
	auth := map[string]string{"Authorization": authHeader(t, author)}

	// Plain form mode: redirect back to the post.
	w := perform(r, http.MethodPost, fmt.Sprintf("/%d/review/new", post.ID),
		map[string]any{"message": "first!"}, auth)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/%d/", post.ID), w.Header().Get("Location"))

	// Ajax mode: bare {message} JSON.
	ajax := map[string]string{
		"Authorization":    authHeader(t, author),
		"X-Requested-With": "XMLHttpRequest",
	}
	w = perform(r, http.MethodPost, fmt.Sprintf("/%d/review/new", post.ID),
		map[string]any{"message": "second!"}, ajax)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "review created", body["message"])

	var count int64
	require.NoError(t, db.Model(&models.Review{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestReviewEmptyMessageRejected(t *testing.T) {
	r, db := newTestRouter(t)
	author := createUser(t, db, "author@example.com")
	post := createPost(t, db, author, "a post nobody can flame")
	ajax := map[string]string{
		"Authorization":    authHeader(t, author),
		"X-Requested-With": "XMLHttpRequest",
	}

	w := perform(r, http.MethodPost, fmt.Sprintf("/%d/review/new", post.ID),
		map[string]any{"message": "   "}, ajax)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewProtectedDelete(t *testing.T) {
	r, db := newTestRouter(t)
	author := createUser(t, db, "author@example.com")
	post := createPost(t, db, author, "review deletion test post")
	review := models.Review{PostID: post.ID, AuthorID: author.ID, Message: "parent"}
	require.NoError(t, db.Create(&review).Error)
	reply := models.ReReview{ReviewID: review.ID, AuthorID: author.ID, Message: "child"}
	require.NoError(t, db.Create(&reply).Error)

	auth := map[string]string{"Authorization": authHeader(t, author)}

	// Refused while the reply exists; both rows stay.
	w := perform(r, http.MethodPost, fmt.Sprintf("/%d/review/delete/%d", post.ID, review.ID), nil, auth)
	require.Equal(t, http.StatusForbidden, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])

	var reviews, replies int64
	require.NoError(t, db.Model(&models.Review{}).Count(&reviews).Error)
	require.NoError(t, db.Model(&models.ReReview{}).Count(&replies).Error)
	assert.Equal(t, int64(1), reviews)
	assert.Equal(t, int64(1), replies)

	// Remove the reply first, then the review goes through.
	w = perform(r, http.MethodPost,
		fmt.Sprintf("/%d/%d/review/delete/%d", post.ID, review.ID, reply.ID), nil, auth)
	require.Equal(t, http.StatusFound, w.Code)

	w = perform(r, http.MethodPost, fmt.Sprintf("/%d/review/delete/%d", post.ID, review.ID), nil, auth)
	require.Equal(t, http.StatusFound, w.Code)

	require.NoError(t, db.Model(&models.Review{}).Count(&reviews).Error)
	assert.Zero(t, reviews)
}

func TestReviewEditByStrangerDenied(t *testing.T) {
	r, db := newTestRouter(t)
	author := createUser(t, db, "author@example.com")
	stranger := createUser(t, db, "stranger@example.com")
	post := createPost(t, db, author, "a post with one review on")
	review := models.Review{PostID: post.ID, AuthorID: author.ID, Message: "original"}
	require.NoError(t, db.Create(&review).Error)

	w := perform(r, http.MethodPost, fmt.Sprintf("/%d/review/edit/%d", post.ID, review.ID),
		map[string]any{"message": "vandalized"},
		map[string]string{
			"Authorization":    authHeader(t, stranger),
			"X-Requested-With": "XMLHttpRequest",
		})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var stored models.Review
	require.NoError(t, db.First(&stored, review.ID).Error)
	assert.Equal(t, "original", stored.Message)
}

func TestLikeToggle(t *testing.T) {
	r, db := newTestRouter(t)
	author := createUser(t, db, "author@example.com")
	fan := createUser(t, db, "fan@example.com")
	post := createPost(t, db, author, "a likeable journal entry")

	// Anonymous callers are prompted to log in; nothing changes.
	w := perform(r, http.MethodGet, fmt.Sprintf("/like?post_pk=%d", post.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.LikeLoginMessage, body["message"])
	assert.EqualValues(t, 0, body["like_count"])

	auth := map[string]string{"Authorization": authHeader(t, fan)}

	w = perform(r, http.MethodPost, fmt.Sprintf("/like?post_pk=%d", post.ID), nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.LikeAddedMessage, body["message"])
	assert.EqualValues(t, 1, body["like_count"])

	// Second toggle removes the like again.
	w = perform(r, http.MethodPost, fmt.Sprintf("/like?post_pk=%d", post.ID), nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.LikeRemovedMessage, body["message"])
	assert.EqualValues(t, 0, body["like_count"])

	var count int64
	require.NoError(t, db.Model(&models.Like{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNextPrevRedirects(t *testing.T) {
	r, db := newTestRouter(t)
	user := createUser(t, db, "author@example.com")
	first := createPost(t, db, user, "the first entry of all")
	second := createPost(t, db, user, "the second entry of all")

	w := perform(r, http.MethodGet, fmt.Sprintf("/%d/next", first.ID), nil, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/%d/", second.ID), w.Header().Get("Location"))

	w = perform(r, http.MethodGet, fmt.Sprintf("/%d/prev", second.ID), nil, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/%d/", first.ID), w.Header().Get("Location"))

	// At the newest entry "next" stays put.
	w = perform(r, http.MethodGet, fmt.Sprintf("/%d/next", second.ID), nil, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/%d/", second.ID), w.Header().Get("Location"))
}

func TestDownloadPhotosZip(t *testing.T) {
	r, db := newTestRouter(t)
	user := createUser(t, db, "author@example.com")
	post := createPost(t, db, user, "a post with real photos")

	dir := t.TempDir()
	file := filepath.Join(dir, "shot.jpg")
	require.NoError(t, os.WriteFile(file, []byte("jpegdata"), 0o644))
	require.NoError(t, db.Create(&models.Photo{
		PostID: post.ID, URL: "/static/shot.jpg", FilePath: file,
	}).Error)

	w := perform(r, http.MethodGet, fmt.Sprintf("/%d/photo/download", post.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))

	wantName := fmt.Sprintf("export-%s-%d-photos.zip", time.Now().Format("20060102"), post.ID)
	assert.Contains(t, w.Header().Get("Content-Disposition"), wantName)

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "shot.jpg", zr.File[0].Name)
}

func TestDownloadPhotosEmpty(t *testing.T) {
	r, db := newTestRouter(t)
	user := createUser(t, db, "author@example.com")
	post := createPost(t, db, user, "a post without a photo")

	w := perform(r, http.MethodGet, fmt.Sprintf("/%d/photo/download", post.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTagListingAndCloud(t *testing.T) {
	r, db := newTestRouter(t)
	user := createUser(t, db, "author@example.com")
	tagged := createPost(t, db, user, "an entry about mountains")
	createPost(t, db, user, "an entry about the city")
	tag := models.Tag{Name: "mountains"}
	require.NoError(t, db.Create(&tag).Error)
	require.NoError(t, db.Model(&tagged).Association("Tags").Append(&tag))

	w := perform(r, http.MethodGet, "/tag/mountains", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeEnvelope(t, w).Data["items"].([]any)
	require.Len(t, items, 1)
	assert.EqualValues(t, tagged.ID, items[0].(map[string]any)["id"])

	w = perform(r, http.MethodGet, "/tag", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tags := decodeEnvelope(t, w).Data["tags"].([]any)
	require.Len(t, tags, 1)
	entry := tags[0].(map[string]any)
	assert.Equal(t, "mountains", entry["name"])
	assert.EqualValues(t, 1, entry["count"])
}

func TestPopulationChartShape(t *testing.T) {
	r, db := newTestRouter(t)
	busy := createUser(t, db, "busy@example.com")
	lazy := createUser(t, db, "lazy@example.com")
	p1 := createPost(t, db, busy, "busy author's first post")
	createPost(t, db, busy, "busy author's second post")
	createPost(t, db, lazy, "lazy author's only post!")
	require.NoError(t, db.Create(&models.Like{PostID: p1.ID, UserID: lazy.ID}).Error)

	w := perform(r, http.MethodGet, "/population-chart", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Labels     []string `json:"labels"`
		Data       []int64  `json:"data"`
		LikesGiven []int64  `json:"likes_given"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Labels, 2)
	assert.Equal(t, "busy@example.com", body.Labels[0])
	assert.Equal(t, []int64{2, 1}, body.Data)
	assert.Equal(t, []int64{0, 1}, body.LikesGiven)
}

func TestProfileIncludesLikedPosts(t *testing.T) {
	r, db := newTestRouter(t)
	author := createUser(t, db, "author@example.com")
	fan := createUser(t, db, "fan@example.com")
	post := createPost(t, db, author, "a post the fan has liked")
	require.NoError(t, db.Create(&models.Like{PostID: post.ID, UserID: fan.ID}).Error)

	w := perform(r, http.MethodGet, "/accounts/profile", nil,
		map[string]string{"Authorization": authHeader(t, fan)})
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	liked := env.Data["liked_posts"].([]any)
	require.Len(t, liked, 1)
	entry := liked[0].(map[string]any)
	assert.EqualValues(t, post.ID, entry["id"])
	assert.EqualValues(t, 1, entry["like_count"])

	// Public profile by id shows the same.
	w = perform(r, http.MethodGet, fmt.Sprintf("/accounts/profile/%d", fan.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeEnvelope(t, w).Data["liked_posts"].([]any), 1)
}

func TestLogoutBlacklistsToken(t *testing.T) {
	r, db := newTestRouter(t)
	user := createUser(t, db, "bye@example.com")
	header := authHeader(t, user)
	auth := map[string]string{"Authorization": header}

	w := perform(r, http.MethodGet, "/accounts/me", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodPost, "/accounts/logout", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodGet, "/accounts/me", nil, auth)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := perform(r, http.MethodPost, "/new", map[string]any{
		"title": "an anonymous journal post", "content": "x",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
