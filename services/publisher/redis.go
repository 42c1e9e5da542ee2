package publisher

import (
	"context"
	"encoding/base64"
	"math/rand/v2"
	"strconv"

	"sjsage522/bestdeal/logger"
	apperrors "sjsage522/bestdeal/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher implements Publisher using Redis streams
type RedisPublisher struct {
	client          *redis.Client
	ctx             context.Context
	streamPrefix    string
	streamCount     int
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if streamCount < 1 {
		streamCount = 1
	}

	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
	}
}

// Ping checks the Redis connection.
func (p *RedisPublisher) Ping() error {
	if err := p.client.Ping(p.ctx).Err(); err != nil {
		return apperrors.NewPublisher("redis", "ping failed", err)
	}
	return nil
}

// Publish publishes a message to a Redis stream
// The message is base64 encoded before publishing
func (p *RedisPublisher) Publish(key string, message []byte) error {
	encodedMessage := base64.StdEncoding.EncodeToString(message)

	// spread messages over streamCount streams: prefix:0 .. prefix:N-1
	stream := p.streamPrefix + ":" + strconv.Itoa(rand.IntN(p.streamCount))

	err := p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			key: encodedMessage,
		},
	}).Err()
	if err != nil {
		return apperrors.NewPublisher("redis", "xadd "+stream, err)
	}

	logger.ForPublisher().Debug().Str("stream", stream).Str("key", key).Msg("Report published")
	return nil
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	if p.streamMaxLength <= 0 {
		return nil
	}

	for i := 0; i < p.streamCount; i++ {
		stream := p.streamPrefix + ":" + strconv.Itoa(i)
		err := p.client.XTrimMaxLen(p.ctx, stream, int64(p.streamMaxLength)).Err()
		if err != nil {
			return apperrors.NewPublisher("redis", "xtrim "+stream, err)
		}
	}

	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
