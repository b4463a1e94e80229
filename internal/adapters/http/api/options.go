package api

import (
	"time"

	"github.com/okian/speedcube/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRequestTimeout bounds every non-streaming request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithFeedHeartbeat sets how often an idle feed stream sends a keep-alive comment.
func WithFeedHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}
