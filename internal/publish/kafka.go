package publish

import (
	"context"
	"encoding/json"
	"fmt"

	kafka "github.com/segmentio/kafka-go"

	"canonflow/logger"
)

// KafkaPublisher writes records to one Kafka topic; the subject rides as the
// message key so partitioning keeps a subject's records ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *logger.Log
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	p := &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		log: logger.GetLogger(),
	}
	p.log.WithComponent("kafka_publisher").WithFields(logger.Fields{
		"brokers": brokers,
		"topic":   topic,
	}).Debug("kafka publisher initialized")
	return p, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, subject string, fields map[string]string) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal record for %s: %w", subject, err)
	}

	msg := kafka.Message{
		Key:   []byte(subject),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to kafka for %s: %w", subject, err)
	}

	logger.IncrementPublished(len(data))
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.log.WithComponent("kafka_publisher").Debug("closing kafka publisher")
	return p.writer.Close()
}
