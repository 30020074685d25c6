package config

import "errors"

var (
	// ErrInvalid indicates a config file or override failed validation.
	ErrInvalid = errors.New("invalid config")

	// ErrFileNotFound indicates an explicitly requested config file is missing.
	ErrFileNotFound = errors.New("config file not found")

	// ErrFileRead indicates an explicitly requested config file could not be read.
	ErrFileRead = errors.New("cannot read config file")
)
