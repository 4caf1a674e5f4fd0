package erp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	Assert := assert.New(t)
	Assert.Equal(NormalizeName("quebec"), NormalizeName(" Québec "))
	Assert.Equal(NormalizeName("sao paulo"), NormalizeName("São Paulo"))
	Assert.NotEqual(NormalizeName("Ontario"), NormalizeName("Quebec"))
}

func TestMatchState(t *testing.T) {
	states := []countryState{{ID: 1, Code: "ON", Name: "Ontario"}, {ID: 2, Code: "QC", Name: "Québec"}}
	tests := []struct {
		name        string
		code, state string
		id          int
	}{
		{name: "by code", code: "qc", id: 2},
		{name: "by name", state: "Quebec", id: 2},
		{name: "none", code: "BC", state: "British Columbia", id: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.id, matchState(states, tt.code, tt.state))
		})
	}
}

func TestResolveStateFromZip(t *testing.T) {
	zip := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/us/90210", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"country":"United States","places":[{"state":"California","state abbreviation":"CA"}]}`)
	}))
	defer zip.Close()
	previous := ZippopotamURL
	ZippopotamURL = zip.URL
	defer func() { ZippopotamURL = previous }()

	o, _ := newOdoo(t, map[string]string{
		"res.country.search":            `[233]`,
		"res.country.state.search_read": `[{"id":13,"code":"CA","name":"California"},{"id":44,"code":"NY","name":"New York"}]`,
	})
	countryID, stateID, err := o.resolveCountryState(context.Background(), &Partner{CountryCode: "US", Zip: "90210"})
	require.NoError(t, err)
	assert.Equal(t, 233, countryID)
	assert.Equal(t, 13, stateID)
}
