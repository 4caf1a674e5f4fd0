package erp

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"ShopifyWithOdoo/pkg/logging"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ZippopotamURL is the postal code service used when an address has no state.
var ZippopotamURL = "https://api.zippopotam.us"

type zipPlace struct {
	State             string `json:"state"`
	StateAbbreviation string `json:"state abbreviation"`
}

type zipResponse struct {
	Country string     `json:"country"`
	Places  []zipPlace `json:"places"`
}

var zipClient = resty.New().SetTimeout(10 * time.Second)

// lookupZip returns the state code and name of a postal code.
func lookupZip(ctx context.Context, countryCode, zip string) (string, string, error) {
	out := new(zipResponse)
	resp, err := zipClient.R().
		SetContext(ctx).
		SetResult(out).
		Get(fmt.Sprintf("%s/%s/%s", ZippopotamURL, strings.ToLower(countryCode), strings.TrimSpace(zip)))
	if err != nil {
		return "", "", errors.Wrap(err, "failed to request zippopotam")
	}
	if resp.StatusCode() != 200 || len(out.Places) == 0 {
		return "", "", nil
	}
	return out.Places[0].StateAbbreviation, out.Places[0].State, nil
}

// NormalizeName folds case and strips accents so "Québec" matches "quebec".
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		result = s
	}
	return cases.Fold().String(result)
}

type countryState struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// resolveCountryState finds the country by ISO code and the state by code,
// then by name, then through the postal code service.
func (o *Odoo) resolveCountryState(ctx context.Context, p *Partner) (int, int, error) {
	logger := logging.GetLogger()
	if p.CountryCode == "" {
		return 0, 0, nil
	}
	countryID, err := o.client.SearchFirstId(ctx, "res.country", []any{[]any{"code", "=ilike", p.CountryCode}})
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to search res.country")
	}
	if countryID == 0 {
		logger.Infof("Country %s not found", p.CountryCode)
		return 0, 0, nil
	}

	var states []countryState
	err = o.client.SearchReadInto(ctx, "res.country.state", []any{[]any{"country_id", "=", countryID}},
		[]string{"id", "code", "name"}, 0, "", &states)
	if err != nil {
		return countryID, 0, errors.Wrap(err, "failed to search res.country.state")
	}
	if stateID := matchState(states, p.StateCode, p.StateName); stateID != 0 || p.Zip == "" {
		return countryID, stateID, nil
	}

	code, name, err := lookupZip(ctx, p.CountryCode, p.Zip)
	if err != nil {
		logger.Errorf("Zip lookup %s %s: %v", p.CountryCode, p.Zip, err)
		return countryID, 0, nil
	}
	return countryID, matchState(states, code, name), nil
}

func matchState(states []countryState, code, name string) int {
	if code != "" {
		for _, s := range states {
			if strings.EqualFold(s.Code, code) {
				return s.ID
			}
		}
	}
	if name != "" {
		n := NormalizeName(name)
		for _, s := range states {
			if NormalizeName(s.Name) == n {
				return s.ID
			}
		}
	}
	return 0
}
