package webhookevent

import (
	"testing"
	"time"

	"ShopifyWithOdoo/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	first, err := Register(db, "b54557e4-bdd9-4b37-8a5f-bf7d70bcd043", "main", "orders/create")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := Register(db, "b54557e4-bdd9-4b37-8a5f-bf7d70bcd043", "main", "orders/create")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, Forget(db, "b54557e4-bdd9-4b37-8a5f-bf7d70bcd043"))
	retried, err := Register(db, "b54557e4-bdd9-4b37-8a5f-bf7d70bcd043", "main", "orders/create")
	require.NoError(t, err)
	assert.True(t, retried)

	n, err := DeleteOlderThan(db, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
