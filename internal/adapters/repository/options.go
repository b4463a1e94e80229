package repository

import (
	"gorm.io/gorm/logger"

	applog "github.com/okian/speedcube/pkg/logger"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l applog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithAutoMigrate creates or updates the schema when the store opens.
func WithAutoMigrate(enabled bool) Option {
	return func(s *Store) {
		s.autoMigrate = enabled
	}
}

// WithGormLogLevel sets gorm's own SQL logger level (silent by default).
func WithGormLogLevel(level logger.LogLevel) Option {
	return func(s *Store) {
		s.gormLogLevel = level
	}
}
