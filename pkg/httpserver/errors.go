package httpserver

import "errors"

var (
	ErrNilHandler = errors.New("httpserver.errors.nil_handler")
	ErrStart      = errors.New("httpserver.errors.start_failed")
	ErrShutdown   = errors.New("httpserver.errors.shutdown_failed")
)
