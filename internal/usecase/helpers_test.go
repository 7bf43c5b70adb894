package usecase

import (
	"context"
	"errors"
	"postqueue/internal/domain"
	"postqueue/internal/infra/redisq"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeContents struct {
	mu       sync.Mutex
	items    map[string]domain.Content
	getErr   map[string]error
	setCalls int
}

func newFakeContents(items ...domain.Content) *fakeContents {
	f := &fakeContents{items: map[string]domain.Content{}, getErr: map[string]error{}}
	for _, c := range items {
		if c.Status == "" {
			c.Status = domain.ContentDraft
		}
		f.items[c.ID] = c
	}
	return f
}

func (f *fakeContents) Get(_ context.Context, id string) (*domain.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	c, ok := f.items[id]
	if !ok {
		return nil, domain.ErrContentNotFound
	}
	return &c, nil
}

func (f *fakeContents) SetStatus(_ context.Context, id string, status domain.ContentStatus, at *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return domain.ErrContentNotFound
	}
	f.setCalls++
	c.Status = status
	c.ScheduledAt = nil
	if at != nil {
		v := *at
		c.ScheduledAt = &v
	}
	f.items[id] = c
	return nil
}

func (f *fakeContents) content(id string) domain.Content {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id]
}

func (f *fakeContents) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
}

func (f *fakeContents) setBody(id, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.items[id]
	c.Body = body
	f.items[id] = c
}

// funcPublisher answers each call with fn(call index).
type funcPublisher struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, call int) (domain.PublishResult, error)
}

func (p *funcPublisher) Publish(ctx context.Context, _, _, _ string) (domain.PublishResult, error) {
	p.mu.Lock()
	call := p.calls
	p.calls++
	p.mu.Unlock()
	if p.fn == nil {
		return domain.PublishResult{Success: true, SocialPostID: "ok"}, nil
	}
	return p.fn(ctx, call)
}

func (p *funcPublisher) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func alwaysFail(context.Context, int) (domain.PublishResult, error) {
	return domain.PublishResult{Success: false, Error: "rate limited"}, nil
}

var errTransport = errors.New("connection reset")

type testEnv struct {
	mr       *miniredis.Miniredis
	store    *redisq.Client
	contents *fakeContents
	clock    *fakeClock
	pub      *funcPublisher
	sched    *Scheduler
	proc     *Processor
}

func newTestEnv(t *testing.T, contents ...domain.Content) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := &testEnv{
		mr:       mr,
		store:    redisq.New(rdb, "test"),
		contents: newFakeContents(contents...),
		clock:    &fakeClock{now: t0},
		pub:      &funcPublisher{},
	}
	deps := Deps{
		Queue:      e.store,
		Locks:      e.store,
		Contents:   e.contents,
		Clock:      e.clock.Now,
		MockPrefix: "mock_",
	}
	e.sched = &Scheduler{
		Deps:        deps,
		RecordGrace: time.Hour,
		ListWindow:  30 * 24 * time.Hour,
	}
	e.proc = &Processor{
		Deps:           deps,
		Publisher:      e.pub,
		Policy:         domain.DefaultRetryPolicy(),
		LockTTL:        5 * time.Minute,
		RecordGrace:    time.Hour,
		ArchiveTTL:     7 * 24 * time.Hour,
		PublishTimeout: time.Second,
		Concurrency:    4,
		BatchSize:      100,
	}
	return e
}

func (e *testEnv) schedule(t *testing.T, userID, contentID string, at time.Time, accounts ...string) []domain.ScheduledPost {
	t.Helper()
	posts, err := e.sched.Schedule(context.Background(), userID, contentID, accounts, at)
	require.NoError(t, err)
	return posts
}

func (e *testEnv) post(t *testing.T, id string) *domain.ScheduledPost {
	t.Helper()
	p, err := e.store.Get(context.Background(), id)
	require.NoError(t, err)
	return p
}

// inOrderedSet reports whether id is a member of the due-time ordered set.
func (e *testEnv) inOrderedSet(t *testing.T, id string) bool {
	t.Helper()
	_, err := e.store.Rdb.ZScore(context.Background(), e.store.Key("scheduled"), id).Result()
	if errors.Is(err, redis.Nil) {
		return false
	}
	require.NoError(t, err)
	return true
}

func (e *testEnv) requireConsistent(t *testing.T, id string) {
	t.Helper()
	require.Equal(t, e.post(t, id) != nil, e.inOrderedSet(t, id), "record and ordered set disagree for %s", id)
}
