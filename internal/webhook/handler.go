// Package webhook verifies and dispatches Shopify webhook deliveries.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/database/model/webhookevent"
	"ShopifyWithOdoo/internal/rabbitmq"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/sync/customer"
	"ShopifyWithOdoo/internal/sync/order"
	"ShopifyWithOdoo/internal/sync/product"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	HEADER_HMAC        = "X-Shopify-Hmac-Sha256"
	HEADER_TOPIC       = "X-Shopify-Topic"
	HEADER_SHOP_DOMAIN = "X-Shopify-Shop-Domain"
	HEADER_WEBHOOK_ID  = "X-Shopify-Webhook-Id"
)

const (
	TOPIC_ORDERS_CREATE    = "orders/create"
	TOPIC_ORDERS_UPDATED   = "orders/updated"
	TOPIC_CUSTOMERS_CREATE = "customers/create"
	TOPIC_CUSTOMERS_UPDATE = "customers/update"
	TOPIC_PRODUCTS_CREATE  = "products/create"
	TOPIC_PRODUCTS_UPDATE  = "products/update"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnknownTopic     = errors.New("unsupported webhook topic")
)

// Delivery is one webhook request as Shopify sent it.
type Delivery struct {
	Topic      string
	ShopDomain string
	WebhookID  string
	HMAC       string
	Body       []byte
}

// Sign returns the base64 HMAC-SHA256 of body keyed with secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify compares the signature of body in constant time.
func Verify(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}

// Handle verifies a delivery and dispatches it by topic. It reports false for
// a delivery already processed. A failed delivery is forgotten again so that
// Shopify's retry gets processed.
func Handle(ctx context.Context, c *connector.Connector, d Delivery) (bool, error) {
	logger := logging.GetLogger()
	logger.Infof("Start webhook.Handle %s of %s", d.Topic, c.Name)
	defer logger.Infof("End webhook.Handle %s of %s", d.Topic, c.Name)

	if !Verify(c.Instance.SharedSecret, d.Body, d.HMAC) {
		return false, ErrInvalidSignature
	}
	if d.WebhookID == "" {
		d.WebhookID = uuid.NewString()
		logger.Debugf("Delivery of %s without id, registered as %s", d.Topic, d.WebhookID)
	}
	added, err := webhookevent.Register(c.DB, d.WebhookID, c.Name, d.Topic)
	if err != nil {
		return false, err
	}
	if !added {
		logger.Infof("Webhook %s already processed", d.WebhookID)
		return false, nil
	}

	if err := dispatch(ctx, c, d); err != nil {
		if err := webhookevent.Forget(c.DB, d.WebhookID); err != nil {
			logger.Errorf("failed in webhookevent.Forget: %v", err)
		}
		return false, err
	}
	publish(ctx, c, d)
	return true, nil
}

func dispatch(ctx context.Context, c *connector.Connector, d Delivery) error {
	switch d.Topic {
	case TOPIC_ORDERS_CREATE, TOPIC_ORDERS_UPDATED:
		o := new(models.Order)
		if err := json.Unmarshal(d.Body, o); err != nil {
			return errors.Wrapf(err, "failed to unmarshal %s", d.Topic)
		}
		if d.Topic == TOPIC_ORDERS_CREATE {
			return order.ImportOrder(ctx, c, o)
		}
		_, err := order.QueueOrderUpdate(ctx, c, o)
		return err

	case TOPIC_CUSTOMERS_CREATE, TOPIC_CUSTOMERS_UPDATE:
		cu := new(models.Customer)
		if err := json.Unmarshal(d.Body, cu); err != nil {
			return errors.Wrapf(err, "failed to unmarshal %s", d.Topic)
		}
		return customer.AddWebhookCustomer(ctx, c, cu)

	case TOPIC_PRODUCTS_CREATE, TOPIC_PRODUCTS_UPDATE:
		p := new(models.Product)
		if err := json.Unmarshal(d.Body, p); err != nil {
			return errors.Wrapf(err, "failed to unmarshal %s", d.Topic)
		}
		q, err := queue.DraftWebhookQueue(c.DB, c.Name, queue.KIND_PRODUCT)
		if err != nil {
			return err
		}
		_, err = product.AddLine(c, q, p, false)
		return err
	}
	return errors.Wrap(ErrUnknownTopic, d.Topic)
}

// publish fans an accepted delivery out to RabbitMQ. Failures are logged only.
func publish(ctx context.Context, c *connector.Connector, d Delivery) {
	if c.Publisher == nil {
		return
	}
	headers := amqp.Table{
		"instance":    c.Name,
		"topic":       d.Topic,
		"shop_domain": d.ShopDomain,
		"webhook_id":  d.WebhookID,
	}
	if err := c.Publisher.Publish(ctx, rabbitmq.RoutingKey(d.Topic), d.Body, headers); err != nil {
		logging.GetLogger().Errorf("failed to publish webhook %s: %v", d.WebhookID, err)
	}
}
