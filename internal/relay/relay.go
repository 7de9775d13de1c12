// Package relay mirrors broadcast envelopes onto NATS so external consumers
// (projection screens, analytics) can follow matches without a gateway
// connection. The relay decorates the in-process bus publisher; NATS delivery
// is best effort and never blocks a match transition.
package relay

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/events"
)

// Config tunes the NATS connection.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns the standard relay configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "trivia.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Publisher tees envelopes to NATS after handing them to the wrapped
// in-process publisher.
type Publisher struct {
	inner  events.Publisher
	nc     *nats.Conn
	prefix string
	logger zerolog.Logger
}

// New connects to NATS and wraps the given publisher.
func New(cfg Config, inner events.Publisher, logger zerolog.Logger) (*Publisher, error) {
	relayLogger := logger.With().Str("component", "nats-relay").Logger()
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			relayLogger.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			relayLogger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			relayLogger.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{
		inner:  inner,
		nc:     nc,
		prefix: cfg.SubjectPrefix,
		logger: relayLogger,
	}, nil
}

// Publish forwards to the in-process bus first, then mirrors to NATS. A NATS
// failure is logged, never surfaced; gateway clients must not be affected by
// the external leg.
func (p *Publisher) Publish(topic string, env events.Envelope) error {
	if err := p.inner.Publish(topic, env); err != nil {
		return err
	}

	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("relay marshal failed")
		return nil
	}
	if err := p.nc.Publish(p.subject(topic), data); err != nil {
		p.logger.Warn().Err(err).Str("topic", topic).Msg("relay publish failed")
	}
	return nil
}

// subject maps a bus topic to a NATS subject under the configured prefix.
func (p *Publisher) subject(topic string) string {
	return p.prefix + "." + strings.ReplaceAll(topic, "/", ".")
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn().Err(err).Msg("NATS drain failed")
	}
}

var _ events.Publisher = (*Publisher)(nil)
