package kafka

import (
	"context"
	"encoding/json"
	"log"

	"rental-service/models"

	"github.com/segmentio/kafka-go"
)

type BookingEventProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewBookingEventProducer(brokers []string, topic string) *BookingEventProducer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Printf("[RentalService][KafkaProducer] initialized topic=%s brokers=%v", topic, brokers)
	return &BookingEventProducer{writer: w, topic: topic}
}

func (p *BookingEventProducer) SendBookingEvent(event models.BookingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.BookingID),
		Value: data,
	}

	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		log.Printf("[RentalService] failed to send booking event: %v", err)
		return err
	}
	return nil
}

func (p *BookingEventProducer) Close() {
	_ = p.writer.Close()
	log.Println("[RentalService] kafka producer closed")
}
