package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// TicketEventProducer — интерфейс для отправки событий жизненного цикла
// тикета в Kafka (для подмены моком в тестах).
type TicketEventProducer interface {
	ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{})
}

// Producer пишет события тикетов в топик Kafka (best-effort, не блокирует
// обработку сообщений пользователей).
type Producer struct {
	writer *kafka.Writer
	topic  string
	logger *logrus.Logger
}

// NewProducer создаёт продюсер. Если brokers или topic пустые — методы no-op.
func NewProducer(brokers []string, topic string, logger *logrus.Logger) *Producer {
	if logger == nil {
		logger = logrus.New()
	}
	if len(brokers) == 0 || topic == "" {
		return &Producer{logger: logger}
	}
	return &Producer{
		topic:  topic,
		logger: logger,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// ProduceTicketEvent отправляет событие в топик. События: ticket.created,
// ticket.claimed, ticket.released, ticket.resolved, ticket.closed,
// commission.accrued, agent.approved, user.banned, user.unbanned.
func (p *Producer) ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{}) {
	if p.writer == nil {
		return
	}
	msg := map[string]interface{}{"event": event}
	for k, v := range payload {
		msg[k] = v
	}
	body, err := json.Marshal(msg)
	if err != nil {
		p.logger.WithError(err).Warn("kafka: marshal ticket event")
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Value: body}); err != nil {
		p.logger.WithError(err).WithField("event", event).Warn("kafka: write ticket event")
	}
}

// Close закрывает writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
