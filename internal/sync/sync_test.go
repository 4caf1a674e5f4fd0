package sync

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"ShopifyWithOdoo/internal/config"
	"ShopifyWithOdoo/internal/connector/connectortest"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/database/model/webhookevent"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/sync/customer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessQueuesFlagsUnfinishedQueue(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	ctx := context.Background()

	q, err := queue.Create(env.DB, "main", queue.KIND_CUSTOMER, queue.CREATED_BY_IMPORT)
	require.NoError(t, err)
	_, err = customer.AddLine(env.Connector, q, &models.Customer{ID: 1, Email: "jane@example.com", FirstName: "Jane"})
	require.NoError(t, err)
	_, err = q.AddLine(env.DB, 2, "broken", "{")
	require.NoError(t, err)

	count, err := ProcessQueues(ctx, env.Connector)
	require.NoError(t, err)
	Assert.Equal(1, count)

	q, err = queue.Get(env.DB, q.ID)
	require.NoError(t, err)
	Assert.Equal(queue.STATE_PARTIALLY_COMPLETED, q.State)
	Assert.Equal(1, q.ProcessCount)
	Assert.False(q.IsActionRequire)
	Assert.Empty(*env.Sent)

	for i := 0; i < 2; i++ {
		_, err = ProcessQueues(ctx, env.Connector)
		require.NoError(t, err)
	}
	q, err = queue.Get(env.DB, q.ID)
	require.NoError(t, err)
	Assert.Equal(queue.MAX_PROCESS_COUNT, q.ProcessCount)
	Assert.True(q.IsActionRequire)
	require.Len(t, *env.Sent, 1)
	Assert.Contains((*env.Sent)[0], q.Name)
}

func TestProcessQueuesSkipsCompleted(t *testing.T) {
	env := connectortest.New(t)
	q, err := queue.Create(env.DB, "main", queue.KIND_CUSTOMER, queue.CREATED_BY_IMPORT)
	require.NoError(t, err)
	_, err = customer.AddLine(env.Connector, q, &models.Customer{ID: 1, Email: "jane@example.com"})
	require.NoError(t, err)

	count, err := ProcessQueues(context.Background(), env.Connector)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = ProcessQueues(context.Background(), env.Connector)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCleanup(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	old := database.Now().AddDate(0, 0, -10)

	q, err := queue.Create(env.DB, "main", queue.KIND_ORDER, queue.CREATED_BY_IMPORT)
	require.NoError(t, err)
	_, err = q.AddLine(env.DB, 1, "#1001", "{}")
	require.NoError(t, err)
	fresh, err := queue.Create(env.DB, "main", queue.KIND_ORDER, queue.CREATED_BY_IMPORT)
	require.NoError(t, err)
	book, err := logbook.Create(env.DB, "main", logbook.TYPE_IMPORT, logbook.MODEL_SALE_ORDER)
	require.NoError(t, err)
	require.NoError(t, book.AddMessage(env.DB, "old message"))
	_, err = webhookevent.Register(env.DB, "hook-1", "main", "orders/create")
	require.NoError(t, err)

	_, err = env.DB.Exec("UPDATE Queue SET CreatedAt=$1 WHERE ID=$2", old, q.ID)
	require.NoError(t, err)
	_, err = env.DB.Exec("UPDATE LogBook SET CreatedAt=$1", old)
	require.NoError(t, err)
	_, err = env.DB.Exec("UPDATE WebhookEvent SET ReceivedAt=$1", old)
	require.NoError(t, err)

	result, err := Cleanup(env.DB, 0)
	require.NoError(t, err)
	Assert.Equal(int64(1), result.Queues)
	Assert.Equal(int64(1), result.LogBooks)
	Assert.Equal(int64(1), result.WebhookEvents)

	var lines int
	require.NoError(t, env.DB.Get(&lines, "SELECT COUNT(*) FROM QueueLine"))
	Assert.Zero(lines)
	require.NoError(t, env.DB.Get(&lines, "SELECT COUNT(*) FROM LogLine"))
	Assert.Zero(lines)
	_, err = queue.Get(env.DB, fresh.ID)
	Assert.NoError(err)

	added, err := webhookevent.Register(env.DB, "hook-1", "main", "orders/create")
	require.NoError(t, err)
	Assert.True(added)
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		values  url.Values
		from    time.Time
		to      time.Time
		skip    bool
		wantErr bool
	}{
		{name: "empty", values: url.Values{}},
		{
			name:   "dates and flags",
			values: url.Values{"from": {"2024-03-01"}, "to": {"2024-03-05 10:30:00"}, "skip_existing": {"true"}, "remote_ids": {"1,2"}},
			from:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			to:     time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC),
			skip:   true,
		},
		{name: "bad date", values: url.Values{"from": {"not a date"}}, wantErr: true},
		{name: "reversed window", values: url.Values{"from": {"2024-03-05"}, "to": {"2024-03-01"}}, wantErr: true},
		{name: "bad flag", values: url.Values{"skip_existing": {"maybe"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseParams(tt.values)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.from.Equal(p.From), "from %s", p.From)
			assert.True(t, tt.to.Equal(p.To), "to %s", p.To)
			assert.Equal(t, tt.skip, p.SkipExisting)
			assert.Equal(t, tt.values.Get("remote_ids"), p.RemoteIDs)
		})
	}
}

func TestRun(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	ctx := context.Background()

	_, err := Run(ctx, env.Connector, "make_coffee", Params{})
	Assert.Equal(ErrUnknownOperation, errors.Cause(err))

	_, err = Run(ctx, env.Connector, OP_IMPORT_PRODUCTS_CSV, Params{})
	Assert.Error(err)

	env.Fake.Shop.PrimaryLocationID = 555
	env.Fake.Locations = []*models.Location{{ID: 555, Name: "Warehouse", Active: true}}
	r, err := Run(ctx, env.Connector, OP_IMPORT_LOCATION, Params{})
	require.NoError(t, err)
	Assert.Equal(1, r.Count)
	Assert.Equal("main", r.Instance)

	env.Fake.Customers = []*models.Customer{{ID: 1, Email: "jane@example.com"}}
	r, err = Run(ctx, env.Connector, OP_IMPORT_CUSTOMERS, Params{})
	require.NoError(t, err)
	require.Len(t, r.Queues, 1)

	r, err = Run(ctx, env.Connector, OP_PROCESS_QUEUES, Params{})
	require.NoError(t, err)
	Assert.Equal(1, r.Count)

	_, err = Run(ctx, env.Connector, OP_IMPORT_ORDERS_BY_REMOTE_IDS, Params{RemoteIDs: ""})
	Assert.Error(err)
}

func TestOperationsAreRunnable(t *testing.T) {
	env := connectortest.New(t)
	env.Config.EXPORT.Path = t.TempDir()
	for _, op := range Operations {
		_, err := Run(context.Background(), env.Connector, op, Params{})
		assert.NotEqual(t, ErrUnknownOperation, errors.Cause(err), op)
	}
}

func TestRunScheduledSkipsInactiveInstances(t *testing.T) {
	env := connectortest.New(t)
	cfg, err := config.LoadString(strings.Replace(connectortest.Config, "Active = true", "Active = false", 1) + `
[SCHEDULER]
ImportOrders = true
Cleanup = true
`)
	require.NoError(t, err)

	old, err := queue.Create(env.DB, "main", queue.KIND_ORDER, queue.CREATED_BY_IMPORT)
	require.NoError(t, err)
	_, err = env.DB.Exec("UPDATE Queue SET CreatedAt=$1 WHERE ID=$2", database.Now().AddDate(0, 0, -30), old.ID)
	require.NoError(t, err)

	RunScheduled(context.Background(), cfg, env.DB)

	assert.Empty(t, env.Fake.Queries)
	var count int
	require.NoError(t, env.DB.Get(&count, "SELECT COUNT(*) FROM Queue"))
	assert.Zero(t, count)
}
