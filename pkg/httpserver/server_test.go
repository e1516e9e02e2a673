package httpserver_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurelimits/pkg/httpserver"
	"github.com/dmitrymomot/featurelimits/pkg/logger"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	released := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			<-released
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(httpserver.Config{ShutdownTimeout: 2 * time.Second}, handler)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	resp, err := http.Get(base + "/")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	slow := make(chan int, 1)
	go func() {
		resp, err := http.Get(base + "/slow")
		if err != nil {
			slow <- 0
			return
		}
		_ = resp.Body.Close()
		slow <- resp.StatusCode
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(released)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		require.Fail(t, "server did not stop")
	}
	assert.Equal(t, http.StatusOK, <-slow, "in-flight request should drain")
}

func TestServer_RunInvalidAddr(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.Config{Addr: "invalid-address"}, http.NotFoundHandler())
	err := srv.Run(context.Background())
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestNew_NilHandlerPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { httpserver.New(httpserver.Config{}, nil) })
}

func TestProbes(t *testing.T) {
	t.Parallel()

	body := func(t *testing.T, h http.Handler) (int, string) {
		t.Helper()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		b, err := io.ReadAll(rec.Body)
		require.NoError(t, err)
		return rec.Code, string(b)
	}

	log := newDiscardLogger()

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()
		code, b := body(t, httpserver.LivenessHandler())
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ALIVE", b)
	})

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		ok := func(context.Context) error { return nil }
		code, b := body(t, httpserver.ReadinessHandler(log, ok, ok))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "READY", b)
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()
		ok := func(context.Context) error { return nil }
		down := func(context.Context) error { return errors.New("redis down") }
		code, b := body(t, httpserver.ReadinessHandler(log, ok, down))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "NOT_READY", b)
	})
}

func newDiscardLogger() *slog.Logger {
	return logger.New(logger.WithOutput(io.Discard))
}
