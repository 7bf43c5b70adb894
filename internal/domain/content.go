package domain

import "time"

type ContentStatus string

const (
	ContentDraft     ContentStatus = "draft"
	ContentScheduled ContentStatus = "scheduled"
	ContentPublished ContentStatus = "published"
	ContentFailed    ContentStatus = "failed"
)

// Content is the slice of a content-store record the scheduler reads.
type Content struct {
	ID          string
	UserID      string
	Platform    Platform
	Body        string
	Status      ContentStatus
	ScheduledAt *time.Time
}
