package usecase

import (
	"context"
	"errors"
	"fmt"
	"postqueue/internal/domain"
	"postqueue/internal/ports"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Scheduler is the synchronous scheduling API. Every call is scoped to an
// already authenticated user id.
type Scheduler struct {
	Deps

	// RecordGrace is how long a record outlives its due time.
	RecordGrace time.Duration
	// ListWindow bounds how far ahead List looks.
	ListWindow time.Duration
}

var _ ports.SchedulingAPI = (*Scheduler)(nil)

// Schedule creates one post per account for the content, due at `at`.
func (s *Scheduler) Schedule(ctx context.Context, userID, contentID string, accountIDs []string, at time.Time) ([]domain.ScheduledPost, error) {
	now := s.now()
	if !at.After(now) {
		return nil, domain.ErrInvalidSchedule
	}
	if len(accountIDs) == 0 {
		return nil, fmt.Errorf("%w: no accounts given", domain.ErrInvalidSchedule)
	}

	content, err := s.authorize(ctx, userID, contentID)
	if errors.Is(err, domain.ErrUnauthorized) {
		return nil, fmt.Errorf("content %s: %w", contentID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	ttl := recordTTL(now, at, s.RecordGrace)
	posts := make([]domain.ScheduledPost, 0, len(accountIDs))
	tracked := false
	for _, accountID := range accountIDs {
		p := domain.ScheduledPost{
			ID:          uuid.NewString(),
			ContentID:   content.ID,
			AccountID:   accountID,
			Platform:    content.Platform,
			Content:     content.Body,
			ScheduledAt: at.UTC(),
			Status:      domain.StatusScheduled,
		}
		if err := s.Queue.Save(ctx, p, ttl); err != nil {
			s.rollback(ctx, posts)
			return nil, err
		}
		posts = append(posts, p)
		tracked = tracked || s.tracked(p)
	}

	s.Metrics.RecordScheduled(ctx, string(content.Platform), len(posts))
	log.Ctx(ctx).Info().
		Str("content_id", contentID).
		Int("posts", len(posts)).
		Time("scheduled_at", at).
		Msg("posts scheduled")

	if tracked {
		if err := s.syncContent(ctx, contentID, domain.ContentDraft); err != nil {
			return posts, fmt.Errorf("update content status: %w", err)
		}
	}
	return posts, nil
}

func (s *Scheduler) rollback(ctx context.Context, posts []domain.ScheduledPost) {
	for _, p := range posts {
		if err := s.Queue.Remove(ctx, p); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("post_id", p.ID).Msg("rollback of scheduled post failed")
		}
	}
}

// List returns the user's posts due within the list window, earliest first.
func (s *Scheduler) List(ctx context.Context, userID string) ([]domain.ScheduledPost, error) {
	now := s.now()
	ids, err := s.Queue.RangeIDs(ctx, now, now.Add(s.ListWindow))
	if err != nil {
		return nil, err
	}

	owners := map[string]string{}
	posts := []domain.ScheduledPost{}
	for _, id := range ids {
		p, err := s.Queue.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}

		owner, seen := owners[p.ContentID]
		if !seen {
			c, err := s.Contents.Get(ctx, p.ContentID)
			switch {
			case errors.Is(err, domain.ErrContentNotFound):
			case err != nil:
				return nil, err
			default:
				owner = c.UserID
			}
			owners[p.ContentID] = owner
		}
		// Posts whose content is gone belong to nobody.
		if owner != "" && owner == userID {
			posts = append(posts, *p)
		}
	}

	slices.SortStableFunc(posts, func(a, b domain.ScheduledPost) int {
		return a.ScheduledAt.Compare(b.ScheduledAt)
	})
	return posts, nil
}

// Cancel deletes a pending post and reverts the content to draft when it was the last one.
func (s *Scheduler) Cancel(ctx context.Context, userID, id string) error {
	p, err := s.editable(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.Queue.Remove(ctx, *p); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("post_id", id).Str("content_id", p.ContentID).Msg("scheduled post cancelled")

	if !s.tracked(*p) {
		return nil
	}
	if err := s.syncContent(ctx, p.ContentID, domain.ContentDraft); err != nil {
		return fmt.Errorf("update content status: %w", err)
	}
	return nil
}

// Reschedule moves a pending post to a new future time.
func (s *Scheduler) Reschedule(ctx context.Context, userID, id string, at time.Time) error {
	now := s.now()
	if !at.After(now) {
		return domain.ErrInvalidSchedule
	}

	p, err := s.editable(ctx, userID, id)
	if err != nil {
		return err
	}

	p.ScheduledAt = at.UTC()
	p.Status = domain.StatusScheduled
	if err := s.Queue.Reschedule(ctx, *p, recordTTL(now, at, s.RecordGrace)); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("post_id", id).Time("scheduled_at", at).Msg("scheduled post moved")

	if !s.tracked(*p) {
		return nil
	}
	if err := s.syncContent(ctx, p.ContentID, domain.ContentDraft); err != nil {
		return fmt.Errorf("update content status: %w", err)
	}
	return nil
}

// FailedPost returns an archived post that exhausted its retries.
func (s *Scheduler) FailedPost(ctx context.Context, userID, id string) (*domain.ScheduledPost, error) {
	p, err := s.Queue.GetArchived(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("failed post %s: %w", id, domain.ErrNotFound)
	}
	if _, err := s.authorize(ctx, userID, p.ContentID); err != nil {
		return nil, err
	}
	return p, nil
}

// editable loads a post the user owns and that no worker holds the lock for.
// A publishing status without a lock is left over from an interrupted run and
// does not block edits.
func (s *Scheduler) editable(ctx context.Context, userID, id string) (*domain.ScheduledPost, error) {
	p, err := s.Queue.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("scheduled post %s: %w", id, domain.ErrNotFound)
	}

	if _, err := s.authorize(ctx, userID, p.ContentID); err != nil {
		return nil, err
	}

	held, err := s.Locks.Held(ctx, id)
	if err != nil {
		return nil, err
	}
	if held {
		return nil, domain.ErrPostInFlight
	}
	return p, nil
}

func (s *Scheduler) authorize(ctx context.Context, userID, contentID string) (*domain.Content, error) {
	c, err := s.Contents.Get(ctx, contentID)
	if errors.Is(err, domain.ErrContentNotFound) {
		return nil, fmt.Errorf("content %s: %w", contentID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("content %s: %w", contentID, domain.ErrUnauthorized)
	}
	return c, nil
}
