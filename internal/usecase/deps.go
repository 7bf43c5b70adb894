package usecase

import (
	"context"
	"fmt"
	"postqueue/internal/domain"
	"postqueue/internal/metrics"
	"postqueue/internal/ports"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
)

// Deps are the collaborators shared by the scheduling API and the due-post processor.
type Deps struct {
	Queue    ports.QueueStore
	Locks    ports.Locker
	Contents ports.ContentStore
	Metrics  *metrics.Metrics

	// Clock defaults to time.Now.
	Clock func() time.Time

	// Sandbox lets posts for accounts starting with MockPrefix bypass content status writes.
	Sandbox    bool
	MockPrefix string
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// tracked reports whether the post participates in the content status projection.
func (d Deps) tracked(p domain.ScheduledPost) bool {
	return !(d.Sandbox && p.IsMock(d.MockPrefix))
}

// pending loads the tracked posts still queued for a content item. Index entries
// whose record has expired are pruned along the way.
func (d Deps) pending(ctx context.Context, contentID string) ([]domain.ScheduledPost, error) {
	ids, err := d.Queue.ContentPostIDs(ctx, contentID)
	if err != nil {
		return nil, err
	}

	posts := make([]domain.ScheduledPost, 0, len(ids))
	for _, id := range ids {
		p, err := d.Queue.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			if err := d.Queue.Remove(ctx, domain.ScheduledPost{ID: id, ContentID: contentID}); err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("post_id", id).Msg("prune stale content index entry")
			}
			continue
		}
		if !d.tracked(*p) {
			continue
		}
		posts = append(posts, *p)
	}
	return posts, nil
}

// syncContent recomputes the content projection: scheduled at the earliest pending
// time while any post remains, otherwise the idle status with no scheduled time.
func (d Deps) syncContent(ctx context.Context, contentID string, idle domain.ContentStatus) error {
	posts, err := d.pending(ctx, contentID)
	if err != nil {
		return fmt.Errorf("load pending posts for content %s: %w", contentID, err)
	}

	if len(posts) == 0 {
		return d.Contents.SetStatus(ctx, contentID, idle, nil)
	}

	earliest := slices.MinFunc(posts, func(a, b domain.ScheduledPost) int {
		return a.ScheduledAt.Compare(b.ScheduledAt)
	}).ScheduledAt
	return d.Contents.SetStatus(ctx, contentID, domain.ContentScheduled, &earliest)
}

func recordTTL(now, scheduledAt time.Time, grace time.Duration) time.Duration {
	return max(scheduledAt.Sub(now), 0) + grace
}
