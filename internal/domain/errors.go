package domain

import "errors"

var (
	// ErrNotFound a required source path (JSON file, source folder) or registry entry does not exist
	ErrNotFound = errors.New("not found")

	// ErrMalformedSource the file exists but its content is not the expected structure
	ErrMalformedSource = errors.New("malformed source")

	// ErrUnrecognizedSystem the filename matches no known terminology system
	ErrUnrecognizedSystem = errors.New("unrecognized terminology system")

	// ErrEmptyProjection the record shares no field with the target whitelist
	ErrEmptyProjection = errors.New("empty projection")
)
