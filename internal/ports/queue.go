package ports

import (
	"context"
	"postqueue/internal/domain"
	"time"
)

// QueueStore holds scheduled post records and the due-time ordered set.
// Every method that touches both keeps them in agreement.
type QueueStore interface {
	// Save writes the record with ttl and adds it to the ordered set and content index.
	Save(ctx context.Context, p domain.ScheduledPost, ttl time.Duration) error
	// Get returns nil, nil when no record exists.
	Get(ctx context.Context, id string) (*domain.ScheduledPost, error)
	// Update rewrites the record only.
	Update(ctx context.Context, p domain.ScheduledPost, ttl time.Duration) error
	// Reschedule rewrites the record and its ordered-set score.
	Reschedule(ctx context.Context, p domain.ScheduledPost, ttl time.Duration) error
	Remove(ctx context.Context, p domain.ScheduledPost) error
	// Archive copies the record into the failure archive and removes it from the active queue.
	Archive(ctx context.Context, p domain.ScheduledPost, ttl time.Duration) error
	GetArchived(ctx context.Context, id string) (*domain.ScheduledPost, error)
	DueIDs(ctx context.Context, until time.Time, limit int64) ([]string, error)
	RangeIDs(ctx context.Context, from, to time.Time) ([]string, error)
	ContentPostIDs(ctx context.Context, contentID string) ([]string, error)
}

type Locker interface {
	// Acquire returns ok=false when the lock is already held.
	Acquire(ctx context.Context, id string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, id, token string) error
	Held(ctx context.Context, id string) (bool, error)
}

type ContentStore interface {
	// Get returns domain.ErrContentNotFound when the content does not exist.
	Get(ctx context.Context, contentID string) (*domain.Content, error)
	SetStatus(ctx context.Context, contentID string, status domain.ContentStatus, scheduledAt *time.Time) error
}

type Publisher interface {
	Publish(ctx context.Context, userID, contentID, accountID string) (domain.PublishResult, error)
}

type Trigger interface {
	// ProcessDue drives every due post through one publish attempt.
	ProcessDue(ctx context.Context) (domain.BatchReport, error)
}

// SchedulingAPI is the user-facing side of the queue.
type SchedulingAPI interface {
	Schedule(ctx context.Context, userID, contentID string, accountIDs []string, at time.Time) ([]domain.ScheduledPost, error)
	List(ctx context.Context, userID string) ([]domain.ScheduledPost, error)
	Cancel(ctx context.Context, userID, id string) error
	Reschedule(ctx context.Context, userID, id string, at time.Time) error
	FailedPost(ctx context.Context, userID, id string) (*domain.ScheduledPost, error)
}
