package usecase

import (
	"context"
	"errors"
	"fmt"
	"postqueue/internal/domain"
	"postqueue/internal/ports"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeGone      Outcome = "gone"
	OutcomeDropped   Outcome = "dropped"
	OutcomePublished Outcome = "published"
	OutcomeRetried   Outcome = "retried"
	OutcomeFailed    Outcome = "failed"
)

// Processor drives due posts through publish, retry and terminal failure.
type Processor struct {
	Deps
	Publisher ports.Publisher
	Policy    domain.RetryPolicy

	LockTTL        time.Duration
	RecordGrace    time.Duration
	ArchiveTTL     time.Duration
	PublishTimeout time.Duration
	Concurrency    int
	BatchSize      int64
}

var _ ports.Trigger = (*Processor)(nil)

// ProcessDue handles every post due now. Per-post errors are logged and counted,
// they never stop the batch. After ctx is cancelled no new post is started and the
// remaining ones are counted as skipped.
func (p *Processor) ProcessDue(ctx context.Context) (domain.BatchReport, error) {
	var report domain.BatchReport

	ids, err := p.Queue.DueIDs(ctx, p.now(), p.BatchSize)
	if err != nil {
		return report, fmt.Errorf("query due posts: %w", err)
	}
	report.Due = len(ids)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(max(p.Concurrency, 1))
	for _, id := range ids {
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				return nil
			}
			outcome, err := p.ProcessPost(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors++
				log.Ctx(ctx).Error().Err(err).Str("post_id", id).Msg("processing scheduled post failed")
				return nil
			}
			switch outcome {
			case OutcomePublished:
				report.Published++
			case OutcomeRetried:
				report.Retried++
			case OutcomeFailed:
				report.Failed++
			case OutcomeDropped:
				report.Dropped++
			default:
				report.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	return report, nil
}

// ProcessPost runs one state machine step for a due post. It is a no-op when another
// worker holds the post's lock or the record is already gone. Once started, the step
// ignores cancellation of ctx and is bounded by PublishTimeout instead.
func (p *Processor) ProcessPost(ctx context.Context, id string) (Outcome, error) {
	ctx = context.WithoutCancel(ctx)

	token, ok, err := p.Locks.Acquire(ctx, id, p.LockTTL)
	if err != nil {
		return "", err
	}
	if !ok {
		p.Metrics.RecordLockContention(ctx)
		return OutcomeSkipped, nil
	}
	defer func() {
		if err := p.Locks.Release(ctx, id, token); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("post_id", id).Msg("lock release failed")
		}
	}()

	logger := log.Ctx(ctx).With().Str("post_id", id).Logger()
	ctx = logger.WithContext(ctx)

	post, err := p.Queue.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if post == nil {
		// Cancelled or completed by someone else; drop any leftover ordered-set member.
		if err := p.Queue.Remove(ctx, domain.ScheduledPost{ID: id}); err != nil {
			return "", err
		}
		return OutcomeGone, nil
	}

	now := p.now()
	if post.ScheduledAt.After(now) {
		return OutcomeSkipped, nil
	}

	content, err := p.Contents.Get(ctx, post.ContentID)
	if errors.Is(err, domain.ErrContentNotFound) {
		if err := p.Queue.Remove(ctx, *post); err != nil {
			return "", err
		}
		zerolog.Ctx(ctx).Warn().Str("content_id", post.ContentID).Msg("content deleted, dropping scheduled post")
		return OutcomeDropped, nil
	}
	if err != nil {
		return "", err
	}

	post.Status = domain.StatusPublishing
	if err := p.Queue.Update(ctx, *post, recordTTL(now, post.ScheduledAt, p.RecordGrace)); err != nil {
		return "", err
	}

	start := time.Now()
	res, err := p.publish(ctx, content.UserID, *post)
	if err != nil {
		outcome, ferr := p.fail(ctx, *post, err)
		label := string(outcome)
		if ferr != nil {
			label = "error"
		}
		p.Metrics.RecordAttempt(ctx, label, time.Since(start))
		return outcome, ferr
	}
	p.Metrics.RecordAttempt(ctx, string(OutcomePublished), time.Since(start))

	post.Status = domain.StatusPublished
	if err := p.Queue.Remove(ctx, *post); err != nil {
		return "", err
	}
	zerolog.Ctx(ctx).Info().
		Str("content_id", post.ContentID).
		Str("account_id", post.AccountID).
		Str("social_post_id", res.SocialPostID).
		Int("retry_count", post.RetryCount).
		Msg("post published")

	if p.tracked(*post) {
		if err := p.syncContent(ctx, post.ContentID, domain.ContentPublished); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("content status not updated after publish")
		}
	}
	return OutcomePublished, nil
}

// publish calls the publisher under PublishTimeout. Transport errors, reported
// failures, timeouts and panics all come back as ErrPublishFailure.
func (p *Processor) publish(ctx context.Context, userID string, post domain.ScheduledPost) (domain.PublishResult, error) {
	if p.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.PublishTimeout)
		defer cancel()
	}

	type result struct {
		res domain.PublishResult
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("publisher panic: %v", r)}
			}
		}()
		res, err := p.Publisher.Publish(ctx, userID, post.ContentID, post.AccountID)
		ch <- result{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return domain.PublishResult{}, fmt.Errorf("%w: %w", domain.ErrPublishFailure, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return r.res, fmt.Errorf("%w: %w", domain.ErrPublishFailure, r.err)
		}
		if !r.res.Success {
			msg := r.res.Error
			if msg == "" {
				msg = "publisher reported failure"
			}
			return r.res, fmt.Errorf("%w: %s", domain.ErrPublishFailure, msg)
		}
		return r.res, nil
	}
}

// fail applies the retry policy: back off and requeue, or archive once retries run out.
func (p *Processor) fail(ctx context.Context, post domain.ScheduledPost, cause error) (Outcome, error) {
	post.RetryCount++
	post.LastError = cause.Error()
	logger := zerolog.Ctx(ctx).With().
		Str("content_id", post.ContentID).
		Str("account_id", post.AccountID).
		Int("retry_count", post.RetryCount).
		Logger()

	if p.Policy.Exhausted(post.RetryCount) {
		cause = fmt.Errorf("%w: %w", domain.ErrTerminalFailure, cause)
		post.Status = domain.StatusFailed
		post.LastError = cause.Error()
		if err := p.Queue.Archive(ctx, post, p.ArchiveTTL); err != nil {
			return "", err
		}
		logger.Warn().Err(cause).Msg("post failed permanently")

		if p.tracked(post) {
			if err := p.Contents.SetStatus(ctx, post.ContentID, domain.ContentFailed, nil); err != nil {
				return "", fmt.Errorf("mark content failed: %w", err)
			}
		}
		return OutcomeFailed, nil
	}

	now := p.now()
	post.ScheduledAt = now.Add(p.Policy.Delay(post.RetryCount)).UTC()
	post.Status = domain.StatusScheduled
	if err := p.Queue.Reschedule(ctx, post, recordTTL(now, post.ScheduledAt, p.RecordGrace)); err != nil {
		return "", err
	}
	logger.Warn().Err(cause).Time("next_attempt", post.ScheduledAt).Msg("publish failed, retrying")
	return OutcomeRetried, nil
}
