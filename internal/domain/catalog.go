package domain

// PlanOffer is a purchasable catalog entry shown by the paywall.
type PlanOffer struct {
	Plan     Plan   `json:"plan"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	// PriceCents is the monthly price in minor units of Currency.
	PriceCents int64    `json:"price_cents"`
	Features   []string `json:"features"`
}

// Catalog returns the static plan catalog priced for the given ISO country
// code. Pricing falls back to USD when the region is unknown.
func Catalog(country string) []PlanOffer {
	currency, premium, pro := regionPricing(country)
	return []PlanOffer{
		{
			Plan:       PlanPremium,
			Name:       "Premium",
			Currency:   currency,
			PriceCents: premium,
			Features: []string{
				"Unlimited plant scans",
				"Unlimited care tips",
				"Advanced AI diagnosis",
				"Treatment plans",
			},
		},
		{
			Plan:       PlanPro,
			Name:       "Pro",
			Currency:   currency,
			PriceCents: pro,
			Features: []string{
				"Everything in Premium",
				"Full offline mode",
			},
		},
	}
}

func regionPricing(country string) (currency string, premium, pro int64) {
	switch country {
	case "ID":
		return "IDR", 4900000, 7900000
	case "GB":
		return "GBP", 399, 699
	case "DE", "FR", "ES", "IT", "NL":
		return "EUR", 449, 749
	default:
		return "USD", 499, 799
	}
}
