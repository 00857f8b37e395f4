// Package rabbitmq содержит подключение к RabbitMQ, объявление топологии,
// публикацию и потребление JSON-сообщений.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Connect подключается к брокеру, повторяя попытку retries раз с паузой delay.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	err := fmt.Errorf("no connection attempts made")

	for i := 0; i < retries; i++ {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал и объявляет direct-exchange с привязанными очередями.
func SetupChannel(conn *amqp.Connection, exchange string, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, exchange, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
