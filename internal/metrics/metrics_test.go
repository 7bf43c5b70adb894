package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupExposesCounters(t *testing.T) {
	m, handler, err := Setup("postqueue-test")
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordScheduled(ctx, "twitter", 2)
	m.RecordAttempt(ctx, "published", 150*time.Millisecond)
	m.RecordLockContention(ctx)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "postqueue_posts_scheduled_total")
	assert.Contains(t, string(body), `outcome="published"`)
	assert.Contains(t, string(body), "postqueue_lock_contention_total")
}

func TestSetupTwice(t *testing.T) {
	_, _, err := Setup("a")
	require.NoError(t, err)
	_, _, err = Setup("b")
	require.NoError(t, err)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordScheduled(context.Background(), "x", 1)
		m.RecordAttempt(context.Background(), "failed", time.Second)
		m.RecordLockContention(context.Background())
	})
}
