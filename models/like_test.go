package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggleLike(t *testing.T) {
	tests := []struct {
		name        string
		member      bool
		count       int64
		wantMember  bool
		wantCount   int64
		wantMessage string
	}{
		{"first like", false, 0, true, 1, LikeAddedMessage},
		{"like on popular post", false, 41, true, 42, LikeAddedMessage},
		{"cancel existing like", true, 1, false, 0, LikeRemovedMessage},
		{"cancel among many", true, 42, false, 41, LikeRemovedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToggleLike(tt.member, tt.count)
			assert.Equal(t, tt.wantMember, got.Member)
			assert.Equal(t, tt.wantCount, got.LikeCount)
			assert.Equal(t, tt.wantMessage, got.Message)
		})
	}
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	first := ToggleLike(false, 7)
	second := ToggleLike(first.Member, first.LikeCount)

	assert.False(t, second.Member)
	assert.Equal(t, int64(7), second.LikeCount)
	assert.Equal(t, LikeRemovedMessage, second.Message)
}
