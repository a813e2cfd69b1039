package controllers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestPageStrip(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		totalPages int
		want       []int
	}{
		{"first strip full", 1, 12, []int{1, 2, 3, 4, 5}},
		{"middle of first strip", 3, 12, []int{1, 2, 3, 4, 5}},
		{"second strip", 6, 12, []int{6, 7, 8, 9, 10}},
		{"last strip truncated", 11, 12, []int{11, 12}},
		{"single page", 1, 1, []int{1}},
		{"no pages still shows one", 1, 0, []int{1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pageStrip(tc.page, tc.totalPages))
		})
	}
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 3, clampPage(99, 3))
	assert.Equal(t, 1, clampPage(0, 3))
	assert.Equal(t, 2, clampPage(2, 3))
	assert.Equal(t, 1, clampPage(5, 0))
}

func TestParsePage(t *testing.T) {
	assert.Equal(t, 1, parsePage(""))
	assert.Equal(t, 1, parsePage("abc"))
	assert.Equal(t, 1, parsePage("-2"))
	assert.Equal(t, 7, parsePage("7"))
}

func TestIsAjax(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest("POST", "/", nil)
	assert.False(t, isAjax(ctx))

	ctx.Request.Header.Set("X-Requested-With", "XMLHttpRequest")
	assert.True(t, isAjax(ctx))

	ctx.Request.Header.Set("X-Requested-With", "xmlhttprequest")
	assert.True(t, isAjax(ctx))
}
