package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func get(t *testing.T, handler http.HandlerFunc) (int, statusBody) {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("a", time.Second, passing())
	h.AddLivenessCheck("b", time.Second, passing())

	code, body := get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestLiveEndpoint_FailureThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failing("connection refused"))
	ctx := context.Background()

	h.liveness[0].run(ctx)
	h.liveness[0].run(ctx)
	code, _ := get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code, "two failures stay below the threshold")

	h.liveness[0].run(ctx)
	code, body := get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestProbe_Recovers(t *testing.T) {
	fail := true
	p := newProbe("flappy", time.Second, func(context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	})
	ctx := context.Background()
	for range failureThreshold {
		p.run(ctx)
	}
	require.False(t, p.healthy.Load())

	fail = false
	p.run(ctx)
	assert.True(t, p.healthy.Load())
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("not ready by default", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("catalog", time.Second, passing())

		code, body := get(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, body.Checks, "_readiness")
		assert.False(t, h.IsReady())
	})

	t.Run("ready and passing", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("catalog", time.Second, passing())
		h.SetReady(true)

		code, body := get(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
		assert.True(t, h.IsReady())

		h.SetReady(false)
		code, _ = get(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})

	t.Run("one failing check", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("catalog", time.Second, passing())
		h.AddReadinessCheck("cache", time.Second, failing("cold"))
		h.SetReady(true)
		for range failureThreshold {
			h.readiness[1].run(context.Background())
		}

		code, body := get(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "cold", body.Checks["cache"])
		assert.NotContains(t, body.Checks, "catalog")
		assert.False(t, h.IsReady())
	})
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddReadinessCheck("catalog", time.Second, failing("empty"))
	h.SetReady(true)

	h.Start(context.Background(), 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	assert.Error(t, GoroutineCountCheck(0)(ctx))

	n := 0
	check := NonEmptyCheck("catalog", func() int { return n })
	err := check(ctx)
	require.Error(t, err)
	assert.Equal(t, "catalog is empty", err.Error())
	n = 5
	assert.NoError(t, check(ctx))
}
