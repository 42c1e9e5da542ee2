package publisher

import (
	"sjsage522/bestdeal/logger"
)

// LogPublisher writes reports to the application log. It is used when no
// Redis server is configured.
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher creates a publisher logging through the publisher component logger.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{log: logger.ForPublisher()}
}

func (p *LogPublisher) Publish(key string, message []byte) error {
	p.log.Info().Str("key", key).RawJSON("report", message).Msg("Report")
	return nil
}

func (p *LogPublisher) TrimStreams() error { return nil }

func (p *LogPublisher) Close() error { return nil }
