package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostValidateTitleLength(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr error
	}{
		{"nine characters rejected", "123456789", ErrTitleTooShort},
		{"exactly ten accepted", "1234567890", nil},
		{"long title accepted", "A Very Long Title", nil},
		{"ten runes multibyte accepted", "가나다라마바사아자차", nil},
		{"whitespace padding does not count", "   short  ", ErrTitleTooShort},
		{"over one hundred rejected", strings.Repeat("x", 101), ErrTitleTooLong},
		{"exactly one hundred accepted", strings.Repeat("x", 100), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Post{Title: tt.title, Content: "some content"}
			assert.ErrorIs(t, p.Validate(), tt.wantErr)
		})
	}
}

func TestPostValidateContent(t *testing.T) {
	p := Post{Title: "A Very Long Title", Content: "   "}
	assert.ErrorIs(t, p.Validate(), ErrContentEmpty)
}

func TestValidatePhoneNumber(t *testing.T) {
	assert.NoError(t, ValidatePhoneNumber(""))
	assert.NoError(t, ValidatePhoneNumber("+821012345678"))
	assert.NoError(t, ValidatePhoneNumber("01012345678"))
	assert.ErrorIs(t, ValidatePhoneNumber("not-a-phone"), ErrInvalidPhoneNumber)
	assert.ErrorIs(t, ValidatePhoneNumber("123"), ErrInvalidPhoneNumber)
}

func TestPhotoValidate(t *testing.T) {
	assert.ErrorIs(t, (&Photo{}).Validate(), ErrPhotoFileMissing)
	assert.NoError(t, (&Photo{URL: "/static/uploads/journal/post/2026/08/a.jpg"}).Validate())
}
