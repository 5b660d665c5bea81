package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"legalrag-backend/internal/model"
)

// QuestionLogPublisher pushes answered-question audit records onto a durable
// queue; persistence happens in the worker so the answer path never waits on
// MySQL.
type QuestionLogPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewQuestionLogPublisher(conn *amqp.Connection, queueName string) *QuestionLogPublisher {
	return &QuestionLogPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *QuestionLogPublisher) Publish(ctx context.Context, entry model.QuestionLog) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal question log failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish question log failed: %w", err)
	}
	return nil
}
