// SPDX-License-Identifier: MIT

package bus

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Mokrovi/backServ/internal/metrics"
)

const relayQueue = 64

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
	Channel  string // pub/sub channel
}

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, config RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// RedisRelay mirrors command signals between processes over Redis pub/sub.
// Outbound messages carry this relay's origin id; inbound messages with the
// same origin are ignored, and inbound signals are never mirrored back.
type RedisRelay struct {
	client  redis.UniversalClient
	bus     *Bus
	channel string
	origin  string
	kinds   []Kind
	out     chan Signal
	logger  zerolog.Logger
}

// NewRedisRelay builds a relay for the command signal kinds.
func NewRedisRelay(client redis.UniversalClient, b *Bus, channel string, logger zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		bus:     b,
		channel: channel,
		origin:  uuid.NewString(),
		kinds:   CommandKinds,
		out:     make(chan Signal, relayQueue),
		logger:  logger,
	}
}

// Origin returns the id stamped on outbound messages.
func (r *RedisRelay) Origin() string { return r.origin }

// Run subscribes to the channel, installs the bus mirror and pumps messages
// both ways until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	r.bus.SetMirror(r.enqueue)
	defer r.bus.SetMirror(nil)

	r.logger.Info().
		Str("event", "relay.started").
		Str("channel", r.channel).
		Str("origin", r.origin).
		Msg("signal relay started")

	in := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-r.out:
			r.send(ctx, sig)
		case msg, ok := <-in:
			if !ok {
				return fmt.Errorf("relay channel %s closed", r.channel)
			}
			r.receive(msg.Payload)
		}
	}
}

func (r *RedisRelay) enqueue(sig Signal) {
	if !slices.Contains(r.kinds, sig.Kind()) {
		return
	}
	select {
	case r.out <- sig:
	default:
		metrics.IncRelayMessage("out", "skipped")
	}
}

func (r *RedisRelay) send(ctx context.Context, sig Signal) {
	data, err := Encode(r.origin, sig)
	if err != nil {
		metrics.IncRelayMessage("out", "error")
		r.logger.Warn().Err(err).Msg("relay encode failed")
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.client.Publish(pubCtx, r.channel, data).Err(); err != nil {
		metrics.IncRelayMessage("out", "error")
		r.logger.Warn().Err(err).Str("kind", string(sig.Kind())).Msg("relay publish failed")
		return
	}
	metrics.IncRelayMessage("out", "ok")
}

func (r *RedisRelay) receive(payload string) {
	env, sig, err := Decode([]byte(payload))
	if err != nil {
		metrics.IncRelayMessage("in", "error")
		r.logger.Warn().Err(err).Msg("relay decode failed")
		return
	}
	if env.Origin == r.origin || !slices.Contains(r.kinds, env.Kind) {
		metrics.IncRelayMessage("in", "skipped")
		return
	}
	metrics.IncRelayMessage("in", "ok")
	r.logger.Debug().
		Str("kind", string(env.Kind)).
		Str("origin", env.Origin).
		Msg("relayed signal received")
	r.bus.Deliver(sig)
}

// HealthCheck pings Redis.
func (r *RedisRelay) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
