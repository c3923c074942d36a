package config

import "errors"

var (
	ErrParsingConfig = errors.New("config: failed to parse environment")
	ErrNilPointer    = errors.New("config: nil pointer provided to loader")
	ErrLoadingFile   = errors.New("config: failed to load env file")
)
