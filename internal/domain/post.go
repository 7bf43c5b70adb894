package domain

import (
	"strings"
	"time"
)

type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
)

type PostStatus string

const (
	StatusScheduled  PostStatus = "scheduled"
	StatusPublishing PostStatus = "publishing"
	StatusPublished  PostStatus = "published"
	StatusFailed     PostStatus = "failed"
)

// ScheduledPost is one pending publication of a content snapshot to a single account.
// The JSON shape is the persisted queue record.
type ScheduledPost struct {
	ID          string     `json:"id"`
	ContentID   string     `json:"contentId"`
	AccountID   string     `json:"accountId"`
	Platform    Platform   `json:"platform"`
	Content     string     `json:"content"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	Status      PostStatus `json:"status"`
	RetryCount  int        `json:"retryCount"`
	LastError   string     `json:"lastError,omitempty"`
}

// IsMock reports whether the post targets a synthetic account.
func (p ScheduledPost) IsMock(prefix string) bool {
	return prefix != "" && strings.HasPrefix(p.AccountID, prefix)
}

type PublishResult struct {
	Success      bool   `json:"success"`
	SocialPostID string `json:"socialPostId,omitempty"`
	Error        string `json:"error,omitempty"`
}
