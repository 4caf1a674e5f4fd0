package customer

import (
	"context"
	"encoding/json"
	"fmt"

	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/mapping"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/erp"
	"ShopifyWithOdoo/internal/shopifyapi"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/shopifyapi/options"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
)

// CUSTOMER_CHUNK is the number of customers per import queue.
const CUSTOMER_CHUNK = 125

// WEBHOOK_BATCH is the size at which the webhook customer queue is processed.
const WEBHOOK_BATCH = 50

// ImportCustomers stores customers updated since the last import as customer queue lines.
func ImportCustomers(ctx context.Context, c *connector.Connector) ([]*queue.Queue, error) {
	logger := logging.GetLogger()
	logger.Info("Start ImportCustomers")
	defer logger.Info("End ImportCustomers")

	since, err := database.GetDate(c.DB, c.Name, database.LAST_DATE_CUSTOMER_IMPORT)
	if err != nil {
		return nil, err
	}
	opts := []options.Option{options.Limit(shopifyapi.PAGE_LIMIT)}
	if !since.IsZero() {
		opts = append(opts, options.UpdatedAtMin(since))
	}
	started := database.Now()

	var queues []*queue.Queue
	var q *queue.Queue
	var count int
	err = c.Shopify.CustomerListEach(ctx, func(page []*models.Customer) error {
		for _, customer := range page {
			if count%CUSTOMER_CHUNK == 0 {
				var err error
				q, err = queue.Create(c.DB, c.Name, queue.KIND_CUSTOMER, queue.CREATED_BY_IMPORT)
				if err != nil {
					return err
				}
				queues = append(queues, q)
			}
			if _, err := AddLine(c, q, customer); err != nil {
				return err
			}
			count++
		}
		return nil
	}, opts...)
	if err != nil {
		return queues, errors.Wrap(err, "failed in CustomerListEach")
	}
	logger.Infof("%d customers queued in %d queues", count, len(queues))
	return queues, database.SetDate(c.DB, c.Name, database.LAST_DATE_CUSTOMER_IMPORT, started)
}

func AddLine(c *connector.Connector, q *queue.Queue, customer *models.Customer) (*queue.Line, error) {
	data, err := json.Marshal(customer)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal customer %d", customer.ID)
	}
	name := customer.FullName()
	if name == "" {
		name = customer.Email
	}
	return q.AddLine(c.DB, customer.ID, name, string(data))
}

// AddWebhookCustomer appends a customer to the draft webhook queue and
// processes the queue once it holds WEBHOOK_BATCH lines.
func AddWebhookCustomer(ctx context.Context, c *connector.Connector, customer *models.Customer) error {
	q, err := queue.DraftWebhookQueue(c.DB, c.Name, queue.KIND_CUSTOMER)
	if err != nil {
		return err
	}
	if _, err := AddLine(c, q, customer); err != nil {
		return err
	}
	counts, err := q.Counts(c.DB)
	if err != nil {
		return err
	}
	if counts.Total < WEBHOOK_BATCH {
		return nil
	}
	return ProcessQueue(ctx, c, q)
}

// ProcessQueue creates or links the partners of the draft lines.
func ProcessQueue(ctx context.Context, c *connector.Connector, q *queue.Queue) error {
	logger := logging.GetLogger()
	logger.Infof("Start customer.ProcessQueue %s", q.Name)
	defer logger.Infof("End customer.ProcessQueue %s", q.Name)

	lines, err := q.LinesByState(c.DB, queue.LINE_DRAFT)
	if err != nil {
		return err
	}
	book, err := c.QueueLogBook(q, logbook.MODEL_PARTNER)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.FinishLogBook(book, q); err != nil {
			logger.Errorf("failed in FinishLogBook: %v", err)
		}
	}()

	for _, line := range lines {
		var customer models.Customer
		if err := json.Unmarshal([]byte(line.Data), &customer); err != nil {
			_ = book.AddMessage(c.DB, fmt.Sprintf("Customer queue line %d of %s has invalid data", line.ID, q.Name))
			if err := q.SetLineState(c.DB, line, queue.LINE_FAILED, 0); err != nil {
				return err
			}
			continue
		}
		partnerID, err := SyncCustomer(ctx, c, &customer)
		state := queue.LINE_DONE
		if err != nil {
			logger.Errorf("failed to sync customer %d: %v", customer.ID, err)
			_ = book.Add(c.DB, logbook.Entry{Message: fmt.Sprintf("Customer %s (%d) not imported: %v", line.Name, customer.ID, err)})
			state = queue.LINE_FAILED
		}
		if err := q.SetLineState(c.DB, line, state, partnerID); err != nil {
			return err
		}
	}
	return nil
}

// SyncCustomer returns the ERP contact of a Shopify customer, found by email
// or created, and stores the link.
func SyncCustomer(ctx context.Context, c *connector.Connector, customer *models.Customer) (int, error) {
	logger := logging.GetLogger()

	partnerID, err := mapping.FindCustomer(c.DB, c.Name, customer.ID)
	if err != nil {
		return 0, err
	}
	if partnerID == 0 {
		partnerID, err = c.ERP.FindPartnerByEmail(ctx, customer.Email)
		if err != nil {
			return 0, err
		}
	}
	if partnerID == 0 {
		name := customer.FullName()
		if name == "" {
			name = customer.Email
		}
		if name == "" {
			return 0, errors.Errorf("customer %d has neither name nor email", customer.ID)
		}
		p := &erp.Partner{Name: name, Email: customer.Email, Phone: customer.Phone}
		if a := customer.DefaultAddress; a != nil {
			fillAddress(p, a)
		}
		partnerID, err = c.ERP.CreatePartner(ctx, p)
		if err != nil {
			return 0, err
		}
		logger.Debugf("Customer %d created as partner %d", customer.ID, partnerID)
	}
	if err := mapping.SaveCustomer(c.DB, c.Name, customer.ID, partnerID); err != nil {
		return 0, err
	}
	if a := customer.DefaultAddress; a != nil {
		if _, err := Address(ctx, c, partnerID, erp.PARTNER_DELIVERY, a); err != nil {
			return partnerID, err
		}
	}
	return partnerID, nil
}

// Address finds or creates the child address of a partner.
func Address(ctx context.Context, c *connector.Connector, parentID int, addressType string, a *models.Address) (int, error) {
	p := &erp.Partner{ParentID: parentID, Type: addressType, Name: a.FullName(), Phone: a.Phone}
	if p.Name == "" {
		p.Name = a.Company
	}
	fillAddress(p, a)
	id, err := c.ERP.FindOrCreateAddress(ctx, p)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to save %s address of partner %d", addressType, parentID)
	}
	return id, nil
}

func fillAddress(p *erp.Partner, a *models.Address) {
	p.Street = a.Address1
	p.Street2 = a.Address2
	p.City = a.City
	p.Zip = a.Zip
	p.CountryCode = a.CountryCode
	p.StateCode = a.ProvinceCode
	p.StateName = a.Province
	if p.Phone == "" {
		p.Phone = a.Phone
	}
}
