package event

import (
	"encoding/json"
	"log"

	"github.com/streadway/amqp"

	"quiz-session-service/internal/domain"
)

// Publisher fans session-completed results out to an AMQP topic exchange so
// downstream consumers (stats, notifications) can react.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewPublisher(amqpURL, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// PublishCompleted emits the result record under the session.completed
// routing key. Best effort: a broker hiccup is logged, never surfaced.
func (p *Publisher) PublishCompleted(record domain.ResultRecord) {
	body, err := json.Marshal(record)
	if err != nil {
		log.Printf("marshal completion event: %v", err)
		return
	}
	err = p.channel.Publish(p.exchange, "session.completed", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		log.Printf("publish completion event: %v", err)
	}
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
