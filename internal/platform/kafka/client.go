// Package kafka builds the franz-go client used by the notification sink.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"cardshare/internal/platform/config"
)

// New creates a producer client for cfg and pings the cluster. Returns nil
// when no brokers are configured.
func New(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (*kgo.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	opts, err := Options(cfg, logger)
	if err != nil {
		return nil, err
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}
	return client, nil
}

// Options translates cfg into client options. Producing waits for all
// in-sync replicas and is idempotent, so retried deliveries do not duplicate.
func Options(cfg config.KafkaConfig, logger *slog.Logger) ([]kgo.Opt, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.AllowAutoTopicCreation(),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}
	if logger != nil {
		opts = append(opts, kgo.WithLogger(slogAdapter{logger: logger}))
	}
	return opts, nil
}

// slogAdapter routes franz-go's client logs into slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Level() kgo.LogLevel {
	ctx := context.Background()
	switch {
	case a.logger.Enabled(ctx, slog.LevelDebug):
		return kgo.LogLevelDebug
	case a.logger.Enabled(ctx, slog.LevelInfo):
		return kgo.LogLevelInfo
	case a.logger.Enabled(ctx, slog.LevelWarn):
		return kgo.LogLevelWarn
	default:
		return kgo.LogLevelError
	}
}

func (a slogAdapter) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	var l slog.Level
	switch level {
	case kgo.LogLevelError:
		l = slog.LevelError
	case kgo.LogLevelWarn:
		l = slog.LevelWarn
	case kgo.LogLevelInfo:
		l = slog.LevelInfo
	default:
		l = slog.LevelDebug
	}
	a.logger.Log(context.Background(), l, msg, append(keyvals, "component", "kafka")...)
}
