package config

import "errors"

var (
	// ErrInvalidScratchPoolSize is returned when the scratch pool size is negative.
	ErrInvalidScratchPoolSize = errors.New("scratch pool size must be greater than or equal to 0")

	// ErrInvalidDumpFormat is returned when the dump format is not recognized.
	ErrInvalidDumpFormat = errors.New("dump format must be \"compressed\" or \"raw\"")
)
