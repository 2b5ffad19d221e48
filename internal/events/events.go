package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"image_ratings/internal/models"
)

// Publisher announces newly stored ratings.
type Publisher interface {
	Publish(ctx context.Context, r models.ImageRating) error
	Close() error
}

func NewPublisher(cfg models.KafkaConfig) Publisher {
	if cfg.Broker == "" {
		return NopPublisher{}
	}
	return NewKafkaPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Broker),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	})
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Message keys by row id so ratings of one row stay on one partition.
func Message(r models.ImageRating) (kafka.Message, error) {
	value, err := json.Marshal(r)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(r.ID, 10)),
		Value: value,
		Time:  r.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("image_rating.created")},
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, r models.ImageRating) error {
	const op = "events.Publish"

	msg, err := Message(r)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.ImageRating) error { return nil }
func (NopPublisher) Close() error                                      { return nil }
