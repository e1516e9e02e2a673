package config

import "errors"

var (
	ErrNilPointer      = errors.New("config.errors.nil_pointer")
	ErrParsingConfig   = errors.New("config.errors.parsing_failed")
	ErrLoadingEnvFile  = errors.New("config.errors.env_file_failed")
)
