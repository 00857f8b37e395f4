package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
)

// ErrPermanent помечает ошибку обработки, которую повтор не исправит.
// Такое сообщение отклоняется без возврата в очередь.
var ErrPermanent = errors.New("permanent message failure")

// ConsumerMessage запускает обработку сообщений очереди queueName.
// Сообщение подтверждается при успешной обработке и возвращается в очередь при ошибке,
// кроме ошибок ErrPermanent.
// Одновременно обрабатывается не более 10 сообщений.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, log *slog.Logger, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sem := make(chan struct{}, 10)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(delivery amqp.Delivery) {
					defer func() { <-sem }()
					handleDelivery(log, queueName, delivery, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func handleDelivery(log *slog.Logger, queueName string, delivery amqp.Delivery, handler func([]byte) error) {
	err := handler(delivery.Body)
	switch {
	case err == nil:
		if ackErr := delivery.Ack(false); ackErr != nil {
			log.Error("failed to ack message", sl.Err(ackErr))
		}
	case errors.Is(err, ErrPermanent):
		log.Error("message rejected", slog.String("queue", queueName), sl.Err(err))
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	default:
		log.Warn("message handling failed, requeueing", slog.String("queue", queueName), sl.Err(err))
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	}
}
