// Package feed publishes round state changes so scoreboards can follow a
// round live. Messages go through an in-process watermill pub/sub with one
// topic per round.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/okian/speedcube/pkg/logger"
	"github.com/okian/speedcube/pkg/metrics"
)

const (
	defaultBufferSize = 64
	metadataType      = "type"
)

// Type names a feed message.
type Type string

// Feed message types.
const (
	RoundOpened     Type = "round_opened"
	RoundCleared    Type = "round_cleared"
	ResultSubmitted Type = "result_submitted"
)

// Valid reports whether t is a known message type.
func (t Type) Valid() bool {
	switch t {
	case RoundOpened, RoundCleared, ResultSubmitted:
		return true
	}
	return false
}

// Event is one round state change.
type Event struct {
	Type         Type      `json:"type"`
	RoundID      uint      `json:"round_id"`
	CompetitorID uint      `json:"competitor_id,omitempty"`
	Seeded       int       `json:"seeded,omitempty"`
	Attempts     []string  `json:"attempts,omitempty"`
	Best         string    `json:"best,omitempty"`
	Result       string    `json:"result,omitempty"`
	At           time.Time `json:"at"`
}

// Topic returns the topic carrying a round's messages.
func Topic(roundID uint) string { return fmt.Sprintf("round.%d", roundID) }

// Feed fans round events out to live subscribers. Messages published while
// nobody listens are dropped.
type Feed struct {
	pubsub     *gochannel.GoChannel
	log        logger.Logger
	bufferSize int64
	closed     atomic.Bool
}

// New creates a feed.
func New(opts ...Option) *Feed {
	f := &Feed{bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(f)
	}

	var wl watermill.LoggerAdapter = watermill.NopLogger{}
	if f.log != nil {
		wl = logger.NewWatermillAdapter(f.log)
	}
	// Publish returns only after every subscriber took the message, so a
	// round's events reach each subscriber in publish order.
	f.pubsub = gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            f.bufferSize,
		BlockPublishUntilSubscriberAck: true,
	}, wl)
	return f
}

// Publish sends e to the round's topic.
func (f *Feed) Publish(ctx context.Context, e Event) error {
	if f.closed.Load() {
		metrics.RecordFeedPublishError()
		return ErrClosed
	}
	if !e.Type.Valid() {
		metrics.RecordFeedPublishError()
		return fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		metrics.RecordFeedPublishError()
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataType, string(e.Type))
	msg.SetContext(ctx)

	if err := f.pubsub.Publish(Topic(e.RoundID), msg); err != nil {
		metrics.RecordFeedPublishError()
		return err
	}
	metrics.RecordFeedPublished(string(e.Type))
	return nil
}

// Subscribe streams the round's events until ctx is done or the feed
// closes; the returned channel is closed then.
func (f *Feed) Subscribe(ctx context.Context, roundID uint) (<-chan Event, error) {
	if f.closed.Load() {
		return nil, ErrClosed
	}
	msgs, err := f.pubsub.Subscribe(ctx, Topic(roundID))
	if err != nil {
		return nil, err
	}

	metrics.AddFeedSubscribers(1)
	out := make(chan Event, f.bufferSize)
	go func() {
		defer close(out)
		defer metrics.AddFeedSubscribers(-1)

		for msg := range msgs {
			var e Event
			if err := json.Unmarshal(msg.Payload, &e); err != nil {
				if f.log != nil {
					f.log.Warn(ctx, "dropping undecodable feed message",
						logger.String("uuid", msg.UUID), logger.Error(err))
				}
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close stops the feed and ends every subscription.
func (f *Feed) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.pubsub.Close()
}
