package customer

import (
	"context"
	"fmt"
	"testing"

	"ShopifyWithOdoo/internal/connector/connectortest"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/mapping"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/erp"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCustomersChunks(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	for i := 0; i < 130; i++ {
		env.Fake.Customers = append(env.Fake.Customers, &models.Customer{ID: int64(i + 1), Email: fmt.Sprintf("c%d@example.com", i)})
	}

	queues, err := ImportCustomers(context.Background(), env.Connector)
	require.NoError(t, err)
	require.Len(t, queues, 2)
	counts, err := queues[1].Counts(env.DB)
	require.NoError(t, err)
	Assert.Equal(5, counts.Total)

	last, err := database.GetDate(env.DB, "main", database.LAST_DATE_CUSTOMER_IMPORT)
	require.NoError(t, err)
	Assert.False(last.IsZero())

	_, err = ImportCustomers(context.Background(), env.Connector)
	require.NoError(t, err)
	Assert.NotEmpty(env.Fake.Queries[len(env.Fake.Queries)-1].Get("updated_at_min"))
}

func TestSyncCustomerMatchesEmail(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	ctx := context.Background()
	existing, err := env.Odoo.CreatePartner(ctx, &erp.Partner{Name: "Jane Roe", Email: "JANE@example.com"})
	require.NoError(t, err)

	customer := &models.Customer{
		ID: 42, Email: "jane@example.com", FirstName: "Jane", LastName: "Roe",
		DefaultAddress: &models.Address{FirstName: "Jane", LastName: "Roe", Address1: "1 Main St", City: "Springfield", Zip: "12345", CountryCode: "US", ProvinceCode: "IL"},
	}
	partnerID, err := SyncCustomer(ctx, env.Connector, customer)
	require.NoError(t, err)
	Assert.Equal(existing, partnerID)

	mapped, err := mapping.FindCustomer(env.DB, "main", 42)
	require.NoError(t, err)
	Assert.Equal(existing, mapped)

	var delivery *erp.Partner
	for _, p := range env.Odoo.Partners {
		if p.ParentID == existing {
			delivery = p
		}
	}
	require.NotNil(t, delivery)
	Assert.Equal(erp.PARTNER_DELIVERY, delivery.Type)
	Assert.Equal("IL", delivery.StateCode)
}

func TestSyncCustomerCreatesWithEmailName(t *testing.T) {
	env := connectortest.New(t)
	partnerID, err := SyncCustomer(context.Background(), env.Connector, &models.Customer{ID: 7, Email: "anon@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "anon@example.com", env.Odoo.Partners[partnerID].Name)

	_, err = SyncCustomer(context.Background(), env.Connector, &models.Customer{ID: 8})
	assert.Error(t, err)
}

func TestWebhookCustomersProcessedInBatches(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	ctx := context.Background()

	for i := 0; i < WEBHOOK_BATCH-1; i++ {
		require.NoError(t, AddWebhookCustomer(ctx, env.Connector, &models.Customer{ID: int64(i + 1), Email: fmt.Sprintf("w%d@example.com", i)}))
	}
	Assert.Empty(env.Odoo.Partners)

	require.NoError(t, AddWebhookCustomer(ctx, env.Connector, &models.Customer{ID: 999, Email: "last@example.com"}))
	Assert.Len(env.Odoo.Partners, WEBHOOK_BATCH)

	queues, err := queue.ListByState(env.DB, "main", queue.KIND_CUSTOMER, queue.STATE_COMPLETED)
	require.NoError(t, err)
	require.Len(t, queues, 1)
	Assert.Equal(queue.CREATED_BY_WEBHOOK, queues[0].CreatedBy)
}
