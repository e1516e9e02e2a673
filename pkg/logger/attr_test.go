package logger_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/featurelimits/pkg/logger"
)

func TestAttrs(t *testing.T) {
	t.Parallel()

	t.Run("nil error is empty", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, logger.Error(nil).Key)

		attr := logger.Error(errors.New("boom"))
		assert.Equal(t, "error", attr.Key)
		assert.Equal(t, "boom", attr.Value.Any().(error).Error())
	})

	t.Run("user id", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		attr := logger.UserID(id)
		assert.Equal(t, "user_id", attr.Key)
		assert.Equal(t, id.String(), attr.Value.String())
	})

	t.Run("typed string keys", func(t *testing.T) {
		t.Parallel()
		type featureKey string
		type planType string
		assert.Equal(t, "orders_monthly", logger.Feature(featureKey("orders_monthly")).Value.String())
		assert.Equal(t, "plan", logger.Plan(planType("free")).Key)
	})

	t.Run("amount", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, int64(3), logger.Amount(3).Value.Int64())
	})

	t.Run("empty request id", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, logger.RequestID("").Key)
		assert.Equal(t, "abc", logger.RequestID("abc").Value.String())
	})
}
