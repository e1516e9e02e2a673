package mongo_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	driver "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/featurelimits/pkg/mongo"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := mongo.New(context.Background(), mongo.Config{})
	assert.ErrorIs(t, err, mongo.ErrEmptyConnectionURL)

	_, err = mongo.NewWithDatabase(context.Background(), mongo.Config{ConnectionURL: "mongodb://localhost:27017"})
	assert.ErrorIs(t, err, mongo.ErrEmptyDatabaseName)
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	assert.True(t, mongo.IsNotFoundError(fmt.Errorf("find: %w", driver.ErrNoDocuments)))
	assert.False(t, mongo.IsNotFoundError(errors.New("boom")))
	assert.False(t, mongo.IsNotFoundError(nil))
}
