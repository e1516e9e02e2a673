package requestid_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurelimits/pkg/logger"
	"github.com/dmitrymomot/featurelimits/pkg/requestid"
)

func serve(t *testing.T, header string) (seen string, echoed string) {
	t.Helper()

	handler := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/limits", nil)
	if header != "" {
		req.Header.Set(requestid.Header, header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	return seen, rec.Header().Get(requestid.Header)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates id when missing", func(t *testing.T) {
		t.Parallel()
		seen, echoed := serve(t, "")
		assert.Equal(t, seen, echoed)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
	})

	t.Run("keeps valid ids", func(t *testing.T) {
		t.Parallel()
		for _, id := range []string{"abc123", "check-usage_42", "550e8400-e29b-41d4-a716-446655440000"} {
			seen, echoed := serve(t, id)
			assert.Equal(t, id, seen)
			assert.Equal(t, id, echoed)
		}
	})

	t.Run("replaces invalid ids", func(t *testing.T) {
		t.Parallel()
		invalid := []string{
			"user@example",
			"with space",
			"a/b",
			"<script>",
			strings.Repeat("x", 129),
		}
		for _, id := range invalid {
			seen, echoed := serve(t, id)
			assert.NotEqual(t, id, seen)
			assert.Equal(t, seen, echoed)
		}
	})
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, requestid.FromContext(context.Background()))
	assert.Equal(t, "req-1", requestid.FromContext(requestid.WithContext(context.Background(), "req-1")))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)

	log.InfoContext(requestid.WithContext(context.Background(), "req-42"), "checked")
	log.InfoContext(context.Background(), "no request")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "req-42", first["request_id"])
	assert.NotContains(t, second, "request_id")
}
