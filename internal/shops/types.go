package shops

// Platform tag stamped on every installation record.
const Platform = "shopify"

// Shop is the installation record stored per shop domain. The access token
// is secret: it is written on completion and only ever read by downstream
// reconciliation, never returned to callers.
type Shop struct {
	ShopDomain  string `dynamodbav:"shopDomain"` // PK
	Platform    string `dynamodbav:"platform,omitempty"`
	AccessToken string `dynamodbav:"accessToken,omitempty"`
	InstalledAt int64  `dynamodbav:"installedAt,omitempty"` // epoch millis, set once

	// Profile fields merged in by the settings fetch and shop/update events.
	ShopID          int64  `dynamodbav:"shopId,omitempty"`
	Email           string `dynamodbav:"email,omitempty"`
	Name            string `dynamodbav:"name,omitempty"`
	ShopOwner       string `dynamodbav:"shopOwner,omitempty"`
	PrimaryLocale   string `dynamodbav:"primaryLocale,omitempty"`
	IanaTimezone    string `dynamodbav:"ianaTimezone,omitempty"`
	Timezone        string `dynamodbav:"timezone,omitempty"`
	Currency        string `dynamodbav:"currency,omitempty"`
	CountryName     string `dynamodbav:"countryName,omitempty"`
	PlanName        string `dynamodbav:"planName,omitempty"`
	PlanDisplayName string `dynamodbav:"planDisplayName,omitempty"`
	TaxShipping     bool   `dynamodbav:"taxShipping,omitempty"`
	TaxesIncluded   bool   `dynamodbav:"taxesIncluded,omitempty"`
	CountyTaxes     bool   `dynamodbav:"countyTaxes,omitempty"`

	UninstalledAt string `dynamodbav:"uninstalledAt,omitempty"` // RFC3339, archive copies only
}

// profileFields is the whitelist MergeProfileFields will touch.
var profileFields = map[string]struct{}{
	"shopId":          {},
	"email":           {},
	"name":            {},
	"shopOwner":       {},
	"primaryLocale":   {},
	"ianaTimezone":    {},
	"timezone":        {},
	"currency":        {},
	"countryName":     {},
	"planName":        {},
	"planDisplayName": {},
	"taxShipping":     {},
	"taxesIncluded":   {},
	"countyTaxes":     {},
}
