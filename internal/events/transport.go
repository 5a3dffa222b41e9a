package events

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// PubSub is a publisher and subscriber pair over one transport.
type PubSub struct {
	message.Publisher
	message.Subscriber
}

// Close closes both sides.
func (ps PubSub) Close() error {
	perr := ps.Publisher.Close()
	if err := ps.Subscriber.Close(); err != nil {
		return err
	}
	return perr
}

// NewInProcess returns a gochannel pub/sub for a single instance.
func NewInProcess(log *slog.Logger) PubSub {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(log))
	return PubSub{Publisher: ch, Subscriber: ch}
}

// NewRedisStream returns a Redis Streams pub/sub. The subscriber has no
// consumer group, so every instance receives every message.
func NewRedisStream(client redis.UniversalClient, log *slog.Logger) (PubSub, error) {
	wlog := watermill.NewSlogLogger(log)

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, wlog)
	if err != nil {
		return PubSub{}, err
	}
	sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{Client: client}, wlog)
	if err != nil {
		_ = pub.Close()
		return PubSub{}, err
	}
	return PubSub{Publisher: pub, Subscriber: sub}, nil
}
