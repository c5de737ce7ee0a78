package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"StaySafe/config"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

// 动作投递的拓扑：一个 topic 交换机，按动作类型分队列。
const (
	ActionsExchange = "actions.topic"

	QueueNotifyContacts = "actions.notify_contacts"
	QueueFenceAlerts    = "actions.fence_alert"
	QueueStateSync      = "actions.state_sync"
)

func Init() error {
	connOnce.Do(func() {
		url := config.Cfg.GetRabbitMQURL()
		conn, connErr = amqp.Dial(url)
		if connErr != nil {
			return
		}

		connErr = declareTopology()
	})

	return connErr
}

// declareTopology 声明交换机和队列，幂等，server 和 worker 都会调用。
func declareTopology() error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel for topology: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(ActionsExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	bindings := map[string]string{
		QueueNotifyContacts: "action.notify_contacts",
		QueueFenceAlerts:    "action.fence_alert",
		QueueStateSync:      "action.state_sync",
	}

	for queue, routingKey := range bindings {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, routingKey, ActionsExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", queue, err)
		}
	}

	return nil
}

func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
