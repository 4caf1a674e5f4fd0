package queue

import (
	"testing"
	"time"

	"ShopifyWithOdoo/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sqlx.DB {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestComputeState(t *testing.T) {
	tests := []struct {
		name   string
		counts Counts
		want   string
	}{
		{"empty", Counts{}, STATE_COMPLETED},
		{"all done", Counts{Total: 3, Done: 3}, STATE_COMPLETED},
		{"done and cancel", Counts{Total: 3, Done: 2, Cancel: 1}, STATE_COMPLETED},
		{"all draft", Counts{Total: 2, Draft: 2}, STATE_DRAFT},
		{"all failed", Counts{Total: 2, Failed: 2}, STATE_FAILED},
		{"mixed", Counts{Total: 3, Draft: 1, Done: 1, Failed: 1}, STATE_PARTIALLY_COMPLETED},
		{"failed and done", Counts{Total: 2, Done: 1, Failed: 1}, STATE_PARTIALLY_COMPLETED},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeState(tt.counts))
		})
	}
}

func TestQueueLifecycle(t *testing.T) {
	Assert := assert.New(t)
	db := openDB(t)

	q, err := Create(db, "main", KIND_ORDER, CREATED_BY_IMPORT)
	require.NoError(t, err)
	Assert.Equal("OQ/00001", q.Name)
	Assert.Equal(STATE_DRAFT, q.State)

	l1, err := q.AddLine(db, 1001, "#1001", `{"id":1001}`)
	require.NoError(t, err)
	l2, err := q.AddLine(db, 1002, "#1002", `{"id":1002}`)
	require.NoError(t, err)
	Assert.Equal(STATE_DRAFT, q.State)

	require.NoError(t, q.SetLineState(db, l1, LINE_DONE, 55))
	Assert.Equal(STATE_PARTIALLY_COMPLETED, q.State)

	require.NoError(t, q.SetLineState(db, l2, LINE_FAILED, 0))
	Assert.Equal(STATE_PARTIALLY_COMPLETED, q.State)

	drafts, err := q.LinesByState(db, LINE_DRAFT, LINE_FAILED)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	Assert.Equal(int64(1002), drafts[0].RemoteID)

	require.NoError(t, q.SetLineState(db, l2, LINE_CANCEL, 0))
	Assert.Equal(STATE_COMPLETED, q.State)

	stored, err := Get(db, q.ID)
	require.NoError(t, err)
	Assert.Equal(STATE_COMPLETED, stored.State)

	lines, err := q.Lines(db)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	Assert.True(lines[0].ProcessedAt.Valid)
	Assert.Equal(int64(55), lines[0].ErpID.Int64)
}

func TestIncrementProcessCount(t *testing.T) {
	db := openDB(t)
	q, err := Create(db, "main", KIND_CUSTOMER, CREATED_BY_IMPORT)
	require.NoError(t, err)
	_, err = q.AddLine(db, 1, "a@example.com", "{}")
	require.NoError(t, err)

	var raised []bool
	for i := 0; i < 4; i++ {
		r, err := q.IncrementProcessCount(db)
		require.NoError(t, err)
		raised = append(raised, r)
	}
	assert.Equal(t, []bool{false, false, true, false}, raised)

	stored, err := Get(db, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.ProcessCount)
	assert.True(t, stored.IsActionRequire)
}

func TestDraftWebhookQueue(t *testing.T) {
	db := openDB(t)

	q1, err := DraftWebhookQueue(db, "main", KIND_CUSTOMER)
	require.NoError(t, err)
	q2, err := DraftWebhookQueue(db, "main", KIND_CUSTOMER)
	require.NoError(t, err)
	assert.Equal(t, q1.ID, q2.ID)
	assert.Equal(t, "CQ/00001", q1.Name)

	l, err := q1.AddLine(db, 7, "c", "{}")
	require.NoError(t, err)
	require.NoError(t, q1.SetLineState(db, l, LINE_DONE, 1))

	q3, err := DraftWebhookQueue(db, "main", KIND_CUSTOMER)
	require.NoError(t, err)
	assert.NotEqual(t, q1.ID, q3.ID)
}

func TestListAndDelete(t *testing.T) {
	db := openDB(t)
	q, err := Create(db, "main", KIND_PRODUCT, CREATED_BY_IMPORT)
	require.NoError(t, err)
	_, err = q.AddLine(db, 9, "Shirt", "{}")
	require.NoError(t, err)

	list, err := ListWithCounts(db, "main")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Total)
	assert.Equal(t, 1, list[0].Draft)

	drafts, err := ListByState(db, "main", KIND_PRODUCT, STATE_DRAFT, STATE_PARTIALLY_COMPLETED)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)

	n, err := DeleteOlderThan(db, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = DeleteOlderThan(db, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var lines int
	require.NoError(t, db.Get(&lines, "SELECT COUNT(*) FROM QueueLine"))
	assert.Equal(t, 0, lines)
}
