// Package kafkasink publishes fragments to a Kafka topic as JSON, keyed by
// location id so a location's fragments stay on one partition.
package kafkasink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/grid-dicer/internal/core/model"
	"github.com/mohammed-shakir/grid-dicer/internal/core/observability"
	"github.com/mohammed-shakir/grid-dicer/internal/sink/keys"
)

type Message struct {
	ListID     int64  `json:"list_id"`
	LocationID int64  `json:"location_id"`
	TileID     int    `json:"grid"`
	WKB        string `json:"wkb"`
}

type Sink struct {
	prod      sarama.SyncProducer
	topic     string
	batchSize int
	pending   []*sarama.ProducerMessage
}

// NewProducer connects a synchronous producer that waits for all in-sync
// replicas.
func NewProducer(brokers []string) (sarama.SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafkasink: no brokers")
	}
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Compression = sarama.CompressionSnappy

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafkasink: create sync producer: %w", err)
	}
	return prod, nil
}

func New(prod sarama.SyncProducer, topic string, batchSize int) *Sink {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Sink{prod: prod, topic: topic, batchSize: batchSize}
}

func (s *Sink) message(f model.Fragment) (*sarama.ProducerMessage, error) {
	b, err := json.Marshal(Message{
		ListID:     f.ListID,
		LocationID: f.LocationID,
		TileID:     f.TileID,
		WKB:        f.HexWKB(),
	})
	if err != nil {
		return nil, fmt.Errorf("kafkasink: marshal: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(keys.Message(f.LocationID)),
		Value: sarama.ByteEncoder(b),
	}, nil
}

func (s *Sink) Write(ctx context.Context, f model.Fragment) error {
	msg, err := s.message(f)
	if err != nil {
		return err
	}
	s.pending = append(s.pending, msg)
	if len(s.pending) >= s.batchSize {
		return s.Flush(ctx)
	}
	return nil
}

func (s *Sink) Flush(_ context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	err := s.prod.SendMessages(s.pending)
	observability.ObserveSinkOp("kafka", err)
	if err != nil {
		var perrs sarama.ProducerErrors
		if errors.As(err, &perrs) {
			return fmt.Errorf("kafkasink: %d of %d messages failed: %w", len(perrs), len(s.pending), perrs[0].Err)
		}
		return fmt.Errorf("kafkasink: send %d messages: %w", len(s.pending), err)
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *Sink) Close() error {
	if err := s.prod.Close(); err != nil {
		return fmt.Errorf("kafkasink: close producer: %w", err)
	}
	return nil
}
