package rabbitmq

import (
	"context"
	"maps"
	"net"
	"strings"
	"sync"

	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher fans webhook payloads out to other consumers.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error
}

// RoutingKey turns a webhook topic such as "orders/create" into "orders.create".
func RoutingKey(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

type AMQPPublisher struct {
	url      string
	exchange string

	declareOnce sync.Once
	declareErr  error
}

func NewPublisher(url, exchange string) *AMQPPublisher {
	return &AMQPPublisher{url: url, exchange: exchange}
}

// Publish opens a connection per message, declares the topic exchange on
// first use and sends the body as a persistent message.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error {
	logger := logging.GetLogger()

	config := amqp.Config{
		Dial: func(network, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(ctx, network, addr)
		},
	}
	conn, err := amqp.DialConfig(p.url, config)
	if err != nil {
		return errors.Wrap(err, "failed to connect to RabbitMQ")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "failed to open a channel to RabbitMQ")
	}
	defer ch.Close()

	p.declareOnce.Do(func() {
		p.declareErr = ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil)
	})
	if p.declareErr != nil {
		return errors.Wrapf(p.declareErr, "failed to declare exchange %s", p.exchange)
	}

	allHeaders := amqp.Table{}
	maps.Copy(allHeaders, headers)

	err = ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Headers:      allHeaders,
	})
	if err != nil {
		return errors.Wrap(err, "failed to publish a message to RabbitMQ")
	}

	logger.Debugf("Published message to RabbitMQ: exchange=%s key=%s", p.exchange, routingKey)
	return nil
}
