package feed

import "github.com/okian/speedcube/pkg/logger"

// Option applies a configuration option to the Feed.
type Option func(*Feed)

// WithLogger sets the feed logger. Watermill's own logs go through it too.
func WithLogger(l logger.Logger) Option {
	return func(f *Feed) {
		if l != nil {
			f.log = l
		}
	}
}

// WithBufferSize sets how many messages each subscriber may have pending.
func WithBufferSize(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.bufferSize = int64(n)
		}
	}
}
