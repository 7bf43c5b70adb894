package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"postqueue/internal/domain"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScheduler struct {
	err        error
	posts      []domain.ScheduledPost
	gotUser    string
	gotID      string
	gotAt      time.Time
	gotAccts   []string
	gotContent string
}

func (s *stubScheduler) Schedule(_ context.Context, userID, contentID string, accountIDs []string, at time.Time) ([]domain.ScheduledPost, error) {
	s.gotUser, s.gotContent, s.gotAccts, s.gotAt = userID, contentID, accountIDs, at
	return s.posts, s.err
}

func (s *stubScheduler) List(_ context.Context, userID string) ([]domain.ScheduledPost, error) {
	s.gotUser = userID
	return s.posts, s.err
}

func (s *stubScheduler) Cancel(_ context.Context, userID, id string) error {
	s.gotUser, s.gotID = userID, id
	return s.err
}

func (s *stubScheduler) Reschedule(_ context.Context, userID, id string, at time.Time) error {
	s.gotUser, s.gotID, s.gotAt = userID, id, at
	return s.err
}

func (s *stubScheduler) FailedPost(_ context.Context, userID, id string) (*domain.ScheduledPost, error) {
	s.gotUser, s.gotID = userID, id
	if s.err != nil {
		return nil, s.err
	}
	return &s.posts[0], nil
}

type stubTrigger struct {
	calls  int
	report domain.BatchReport
	err    error
}

func (t *stubTrigger) ProcessDue(context.Context) (domain.BatchReport, error) {
	t.calls++
	return t.report, t.err
}

func newTestServer(sched *stubScheduler, trig *stubTrigger, opts Options) http.Handler {
	return NewServer(sched, trig, opts).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var asUser = map[string]string{userHeader: "user-1"}

func TestSchedule(t *testing.T) {
	at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	sched := &stubScheduler{posts: []domain.ScheduledPost{{ID: "p1", ContentID: "c1", AccountID: "a1", ScheduledAt: at, Status: domain.StatusScheduled}}}
	h := newTestServer(sched, &stubTrigger{}, Options{})

	body := fmt.Sprintf(`{"contentId":"c1","accountIds":["a1"],"scheduledAt":%q}`, at.Format(time.RFC3339))
	rec := do(t, h, http.MethodPost, "/v1/scheduled-posts", body, asUser)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "user-1", sched.gotUser)
	assert.Equal(t, "c1", sched.gotContent)
	assert.Equal(t, []string{"a1"}, sched.gotAccts)
	assert.True(t, at.Equal(sched.gotAt))

	var resp postsResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, "p1", resp.Posts[0].ID)
}

func TestScheduleValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{`},
		{"missing content", `{"accountIds":["a1"],"scheduledAt":"2030-01-01T00:00:00Z"}`},
		{"no accounts", `{"contentId":"c1","accountIds":[],"scheduledAt":"2030-01-01T00:00:00Z"}`},
		{"blank account", `{"contentId":"c1","accountIds":[""],"scheduledAt":"2030-01-01T00:00:00Z"}`},
		{"missing time", `{"contentId":"c1","accountIds":["a1"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &stubScheduler{}
			rec := do(t, newTestServer(sched, &stubTrigger{}, Options{}), http.MethodPost, "/v1/scheduled-posts", tt.body, asUser)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, sched.gotUser)
		})
	}
}

func TestMissingUser(t *testing.T) {
	sched := &stubScheduler{}
	rec := do(t, newTestServer(sched, &stubTrigger{}, Options{}), http.MethodGet, "/v1/scheduled-posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, sched.gotUser)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidSchedule, http.StatusBadRequest},
		{fmt.Errorf("content c1: %w", domain.ErrUnauthorized), http.StatusForbidden},
		{fmt.Errorf("scheduled post p1: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrPostInFlight, http.StatusConflict},
		{errors.New("redis down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := newTestServer(&stubScheduler{err: tt.err}, &stubTrigger{}, Options{})
			rec := do(t, h, http.MethodDelete, "/v1/scheduled-posts/p1", "", asUser)
			assert.Equal(t, tt.code, rec.Code)

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			if tt.code == http.StatusInternalServerError {
				assert.NotContains(t, body.Error, "redis")
			}
		})
	}
}

func TestCancelAndReschedule(t *testing.T) {
	sched := &stubScheduler{}
	h := newTestServer(sched, &stubTrigger{}, Options{})

	rec := do(t, h, http.MethodDelete, "/v1/scheduled-posts/p9", "", asUser)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "p9", sched.gotID)

	rec = do(t, h, http.MethodPatch, "/v1/scheduled-posts/p7", `{"scheduledAt":"2031-05-06T07:08:09Z"}`, asUser)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "p7", sched.gotID)
	assert.True(t, time.Date(2031, 5, 6, 7, 8, 9, 0, time.UTC).Equal(sched.gotAt))

	rec = do(t, h, http.MethodPatch, "/v1/scheduled-posts/p7", `{}`, asUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAndFailure(t *testing.T) {
	sched := &stubScheduler{posts: []domain.ScheduledPost{{ID: "p1", Status: domain.StatusFailed, RetryCount: 3, LastError: "boom"}}}
	h := newTestServer(sched, &stubTrigger{}, Options{})

	rec := do(t, h, http.MethodGet, "/v1/scheduled-posts", "", asUser)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"posts"`)

	rec = do(t, h, http.MethodGet, "/v1/scheduled-posts/p1/failure", "", asUser)
	require.Equal(t, http.StatusOK, rec.Code)
	var p domain.ScheduledPost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 3, p.RetryCount)
	assert.Equal(t, "boom", p.LastError)
	assert.Equal(t, "p1", sched.gotID)
}

func TestCronRoute(t *testing.T) {
	trig := &stubTrigger{report: domain.BatchReport{Due: 2, Published: 1, Retried: 1}}
	h := newTestServer(&stubScheduler{}, trig, Options{CronSecret: "s3cret"})

	rec := do(t, h, http.MethodPost, "/v1/cron/process-due", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/cron/process-due", "", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, trig.calls)

	rec = do(t, h, http.MethodPost, "/v1/cron/process-due", "", map[string]string{"Authorization": "Bearer s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, trig.calls)

	var report domain.BatchReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, trig.report, report)
}

func TestCronRouteDisabledWithoutSecret(t *testing.T) {
	trig := &stubTrigger{}
	h := newTestServer(&stubScheduler{}, trig, Options{})

	rec := do(t, h, http.MethodPost, "/v1/cron/process-due", "", map[string]string{"Authorization": "Bearer "})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, trig.calls)
}

func TestHealthAndMetrics(t *testing.T) {
	healthy := true
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("postqueue_posts_scheduled_total 1\n"))
	})
	h := newTestServer(&stubScheduler{}, &stubTrigger{}, Options{
		Metrics: metricsHandler,
		Health: func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("redis unreachable")
		},
	})

	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy = false
	rec = do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "postqueue_posts_scheduled")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(&stubScheduler{}, &stubTrigger{}, Options{AllowedOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/v1/scheduled-posts", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
