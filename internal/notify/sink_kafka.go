package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const headerEvent = "event"

// KafkaSink produces each event to the topic named after its channel,
// optionally prefixed. The payload is the JSON EventPayload.
type KafkaSink struct {
	client      *kgo.Client
	topicPrefix string
}

// KafkaSinkOption configures a KafkaSink.
type KafkaSinkOption func(*KafkaSink)

// WithTopicPrefix namespaces topics, e.g. "prod." gives "prod.card_created".
func WithTopicPrefix(prefix string) KafkaSinkOption {
	return func(s *KafkaSink) {
		s.topicPrefix = prefix
	}
}

// NewKafkaSink wraps an existing client; the caller owns its lifecycle.
func NewKafkaSink(client *kgo.Client, opts ...KafkaSinkOption) *KafkaSink {
	s := &KafkaSink{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Topic returns the Kafka topic used for channel.
func (s *KafkaSink) Topic(channel string) string {
	return s.topicPrefix + channel
}

func (s *KafkaSink) Deliver(ctx context.Context, channel string, payload EventPayload) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", channel, err)
	}
	record := &kgo.Record{
		Topic:   s.Topic(channel),
		Value:   value,
		Headers: []kgo.RecordHeader{{Key: headerEvent, Value: []byte(channel)}},
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", record.Topic, err)
	}
	return nil
}

// EnsureTopics creates the card event topics, ignoring ones that exist.
func (s *KafkaSink) EnsureTopics(ctx context.Context, partitions int32, replicationFactor int16) error {
	topics := make([]string, 0, len(Channels))
	for _, ch := range Channels {
		topics = append(topics, s.Topic(ch))
	}

	resp, err := kadm.NewClient(s.client).CreateTopics(ctx, partitions, replicationFactor, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, r := range resp.Sorted() {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}
