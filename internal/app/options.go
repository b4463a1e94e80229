package service

import (
	"github.com/okian/speedcube/internal/adapters/repository"
	"github.com/okian/speedcube/internal/domain/advancement"
	"github.com/okian/speedcube/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore uses an already opened store. The service closes it on Stop.
func WithStore(st *repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithDatabaseDSN sets the DSN the service opens on Start when no store
// was given.
func WithDatabaseDSN(dsn string) Option {
	return func(s *Service) {
		if dsn != "" {
			s.dsn = dsn
		}
	}
}

// WithAutoMigrate migrates the schema when the service opens its store.
func WithAutoMigrate(enabled bool) Option {
	return func(s *Service) {
		s.autoMigrate = enabled
	}
}

// WithFeed sets where round changes are published.
func WithFeed(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.feed = p
		}
	}
}

// WithFeedBufferSize sets the per-subscriber buffer of the feed created on
// Start when none was given.
func WithFeedBufferSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.feedBufferSize = n
		}
	}
}

// WithTiePolicy sets how ties at the advancement boundary are resolved.
func WithTiePolicy(p advancement.TiePolicy) Option {
	return func(s *Service) {
		s.tiePolicy = p
	}
}
