// Package settings fetches a shop's profile from the platform Admin GraphQL
// API after installation completes.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Doer is the outbound HTTP capability, satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

const shopSettingsQuery = `{
  shop {
    id
    name
    email
    shopOwner
    primaryLocale
    ianaTimezone
    currencyCode
    plan {
      displayName
      partnerDevelopment
    }
    billingAddress {
      country
    }
    taxShipping
    taxesIncluded
  }
}`

// Fetcher retrieves shop settings with a per-shop access token.
type Fetcher struct {
	httpClient Doer
	logger     zerolog.Logger
}

func NewFetcher(httpClient Doer, logger zerolog.Logger) *Fetcher {
	return &Fetcher{httpClient: httpClient, logger: logger}
}

type settingsResponse struct {
	Data struct {
		Shop map[string]interface{} `json:"shop"`
	} `json:"data"`
}

// Fetch queries the shop and returns its settings as profile fields keyed
// the way the shops table expects them.
func (f *Fetcher) Fetch(ctx context.Context, shopDomain, accessToken string) (map[string]interface{}, error) {
	url := fmt.Sprintf("https://%s/admin/api/graphql.json", shopDomain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(shopSettingsQuery))
	if err != nil {
		return nil, fmt.Errorf("settings: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/graphql")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("settings: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("settings: fetch returned %d", resp.StatusCode)
	}

	var body settingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("settings: decode response: %w", err)
	}
	if body.Data.Shop == nil {
		return nil, fmt.Errorf("settings: response has no shop")
	}

	return flatten(body.Data.Shop), nil
}

// flatten lifts the nested plan and billing address values into the flat
// attribute names the shops table uses.
func flatten(shop map[string]interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(shop))
	for k, v := range shop {
		if v == nil {
			continue
		}
		switch k {
		case "id":
			if id, ok := numericID(v); ok {
				fields["shopId"] = id
			}
		case "currencyCode":
			fields["currency"] = v
		case "plan":
			if plan, ok := v.(map[string]interface{}); ok {
				if dn, ok := plan["displayName"]; ok && dn != nil {
					fields["planDisplayName"] = dn
				}
				if pd, ok := plan["partnerDevelopment"]; ok && pd != nil {
					fields["planName"] = planName(pd)
				}
			}
		case "billingAddress":
			if addr, ok := v.(map[string]interface{}); ok {
				if country, ok := addr["country"]; ok && country != nil {
					fields["countryName"] = country
				}
			}
		default:
			fields[k] = v
		}
	}
	return fields
}

// numericID extracts the numeric shop id from either a bare number or a
// gid://shopify/Shop/N global id.
func numericID(v interface{}) (int64, bool) {
	switch id := v.(type) {
	case float64:
		return int64(id), true
	case string:
		parts := strings.Split(id, "/")
		n, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func planName(partnerDevelopment interface{}) string {
	if pd, ok := partnerDevelopment.(bool); ok && pd {
		return "partner_test"
	}
	return "paid"
}
