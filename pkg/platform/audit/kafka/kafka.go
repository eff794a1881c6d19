// Package kafka provides a Kafka-backed audit sink. Events are produced as
// JSON records keyed by principal so per-caller ordering is preserved within
// a partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "namemint/pkg/platform/audit"
)

// Sink implements audit.Store's append side on a Kafka topic. ListRecent is
// not supported; reads go to the database store or a downstream consumer.
type Sink struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and ensures the audit topic exists.
func New(ctx context.Context, seeds []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", resp.Err)
	}

	return &Sink{client: client, topic: topic}, nil
}

type record struct {
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	Principal string `json:"principal,omitempty"`
	Action    string `json:"action"`
	Subject   string `json:"subject,omitempty"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Append produces one audit event synchronously.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(record{
		Category:  string(event.Category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Principal: event.Principal.String(),
		Action:    event.Action,
		Subject:   event.Subject,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Principal.String()),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// ListRecent is unsupported on the Kafka sink.
func (s *Sink) ListRecent(context.Context, int) ([]audit.Event, error) {
	return nil, fmt.Errorf("kafka sink does not support reads")
}

// Close flushes and closes the underlying client.
func (s *Sink) Close() {
	s.client.Close()
}
