package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"santamoment/internal/models"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: writer}
}

// Publish sends one keyed message to the given topic.
func (p *Producer) Publish(topic string, key string, value []byte) error {
	return p.writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

// PublishOrderEvent streams an order lifecycle event.
func (p *Producer) PublishOrderEvent(topic, eventType string, order models.Order) error {
	event := models.OrderEvent{
		Type:      eventType,
		OrderID:   order.OrderID,
		Order:     &order,
		Timestamp: time.Now(),
	}
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Publish(topic, order.OrderID, msgBytes)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
