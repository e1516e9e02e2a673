package redis

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("redis.errors.empty_connection_url")
	ErrParseURL           = errors.New("redis.errors.parse_url")
	ErrNotReady           = errors.New("redis.errors.not_ready")
	ErrHealthcheck        = errors.New("redis.errors.healthcheck")
)
