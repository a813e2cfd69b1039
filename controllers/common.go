package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sgd0947/journal/middleware"
)

const (
	// pageSize is the fixed number of posts per listing page.
	pageSize = 10
	// pageWindow is the width of the page-number strip shown under listings.
	pageWindow = 5
)

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

// isStaff reports whether the authenticated caller is a configured staff
// account. Staff may edit or delete any post and review.
func isStaff(ctx *gin.Context) bool {
	unameVal, exists := ctx.Get(middleware.ContextUsernameKey)
	if !exists {
		return false
	}
	uname, _ := unameVal.(string)
	return isStaffUsername(uname)
}

// isAjax distinguishes asynchronous callers from plain form submissions. Ajax
// callers get JSON bodies; plain callers get redirects.
func isAjax(ctx *gin.Context) bool {
	return strings.EqualFold(ctx.GetHeader("X-Requested-With"), "XMLHttpRequest")
}

func parsePage(pageStr string) int {
	page := 1
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	return page
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

// pageStrip computes the window of page numbers surrounding the current page.
// Pages come in fixed strips of five: 1-5, 6-10, and so on.
func pageStrip(page, totalPages int) []int {
	if totalPages < 1 {
		totalPages = 1
	}
	start := (page-1)/pageWindow*pageWindow + 1
	strip := make([]int, 0, pageWindow)
	for p := start; p < start+pageWindow && p <= totalPages; p++ {
		strip = append(strip, p)
	}
	return strip
}

// clampPage folds an out-of-range page back into bounds the way the original
// paginator did: overflow lands on the last page, underflow on the first.
func clampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		return totalPages
	}
	if page < 1 {
		return 1
	}
	return page
}
