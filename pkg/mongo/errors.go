package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

var (
	ErrEmptyConnectionURL = errors.New("mongo.errors.empty_connection_url")
	ErrEmptyDatabaseName  = errors.New("mongo.errors.empty_database_name")
	ErrConnect            = errors.New("mongo.errors.connect")
	ErrHealthcheck        = errors.New("mongo.errors.healthcheck")
)

// IsNotFoundError reports whether err is mongo.ErrNoDocuments.
func IsNotFoundError(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// IsDuplicateKeyError reports whether err is a unique index violation.
func IsDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
