package model

import "github.com/shopspring/decimal"

const (
	GuideModeURL = "url"

	// CurrencyStars is the provider currency code for Telegram Stars.
	CurrencyStars = "XTR"
)

// Offer is the runtime view of the single product on sale. Static values
// come from configuration; price, URL and the sales flag can be overridden
// by the settings document.
type Offer struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Mode         string  `json:"mode"`
	GuideURL     string  `json:"guide_url"`
	Payload      string  `json:"payload"`
	PriceUAH     int64   `json:"price_uah"`
	OldPriceUAH  int64   `json:"old_price_uah"`
	UAHPerStar   float64 `json:"uah_per_star"`
	TONPerStar   float64 `json:"ton_per_star"`
	TONWallet    string  `json:"ton_wallet,omitempty"`
	SalesEnabled bool    `json:"sales_enabled"`
}

// PriceStars converts the UAH price to stars, rounding half to even.
func (o Offer) PriceStars() int64 {
	if o.UAHPerStar <= 0 {
		return 0
	}
	return decimal.NewFromInt(o.PriceUAH).
		Div(decimal.NewFromFloat(o.UAHPerStar)).
		RoundBank(0).
		IntPart()
}

// TONEstimate converts a star amount to TON using the configured rate.
func (o Offer) TONEstimate(stars int64) decimal.Decimal {
	return decimal.NewFromInt(stars).Mul(decimal.NewFromFloat(o.TONPerStar))
}

// DownloadURL is the link shown to buyers, empty unless the guide is served by URL.
func (o Offer) DownloadURL() string {
	if o.Mode != GuideModeURL {
		return ""
	}
	return o.GuideURL
}

// SettingsDocument holds persisted overrides. Nil fields do not override.
type SettingsDocument struct {
	PriceUAH     *int64  `json:"price_uah,omitempty"`
	OldPriceUAH  *int64  `json:"old_price_uah,omitempty"`
	GuideURL     *string `json:"guide_url,omitempty"`
	SalesEnabled *bool   `json:"sales_enabled,omitempty"`
}

// ApplyTo overlays the keys present in d onto o.
func (d SettingsDocument) ApplyTo(o Offer) Offer {
	if d.PriceUAH != nil {
		o.PriceUAH = *d.PriceUAH
	}
	if d.OldPriceUAH != nil {
		o.OldPriceUAH = *d.OldPriceUAH
	}
	if d.GuideURL != nil {
		o.GuideURL = *d.GuideURL
	}
	if d.SalesEnabled != nil {
		o.SalesEnabled = *d.SalesEnabled
	}
	return o
}
