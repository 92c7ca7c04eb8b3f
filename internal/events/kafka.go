// Пакет events — публикация событий об итогах отправки напоминаний.
// Событие публикуется после записи в журнал отправок. Ошибка публикации
// не влияет на прогон: источник истины — журнал в PostgreSQL.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bigkaa/expiry-reminder/internal/domain/model"
)

// DispatchEvent — событие об итоге попытки отправки.
type DispatchEvent struct {
	RecordID     string    `json:"record_id"`
	DocumentID   string    `json:"document_id"`
	Milestone    string    `json:"milestone"`
	Status       string    `json:"status"`
	DaysToExpiry int       `json:"days_to_expiry"`
	MessageID    string    `json:"message_id,omitempty"`
	Error        string    `json:"error,omitempty"`
	AttemptedAt  time.Time `json:"attempted_at"`
}

// NewDispatchEvent строит событие по записи журнала.
func NewDispatchEvent(rec *model.DispatchRecord) DispatchEvent {
	return DispatchEvent{
		RecordID:     rec.ID,
		DocumentID:   rec.DocumentID,
		Milestone:    string(rec.Milestone),
		Status:       string(rec.Status),
		DaysToExpiry: rec.DaysToExpiry,
		MessageID:    rec.MessageID,
		Error:        rec.Error,
		AttemptedAt:  rec.AttemptedAt,
	}
}

// messageWriter — часть kafka.Writer, используемая публикатором.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher публикует DispatchEvent в топик Kafka.
// Ключ сообщения — ID документа: события одного документа попадают в одну партицию.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher создаёт публикатор для брокеров и топика.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			WriteTimeout:           10 * time.Second,
		},
		topic:  topic,
		logger: logger.With(slog.String("component", "kafka_publisher")),
	}
}

// encode сериализует событие в сообщение Kafka.
func encode(event DispatchEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("сериализация события: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.DocumentID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("reminder.dispatch." + event.Status)},
		},
	}, nil
}

// Publish отправляет событие в Kafka.
func (p *KafkaPublisher) Publish(ctx context.Context, event DispatchEvent) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("публикация события в %s: %w", p.topic, err)
	}
	p.logger.Debug("Событие опубликовано",
		slog.String("document_id", event.DocumentID),
		slog.String("milestone", event.Milestone),
		slog.String("status", event.Status),
	)
	return nil
}

// Close закрывает writer, дожидаясь отправки буфера.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
