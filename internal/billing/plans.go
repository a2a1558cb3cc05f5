package billing

// Credit packs: each Stripe price grants a fixed number of enhancements.
var planCredits = map[string]int{
	"price_basic":    5,
	"price_standard": 10,
	"price_premium":  15,
	"price_pro":      20,
}

// CreditsForPrice maps a Stripe price id to the number of credits it grants.
func CreditsForPrice(priceID string) (int, bool) {
	credits, ok := planCredits[priceID]
	return credits, ok
}

// KnownPrices lists the purchasable price ids.
func KnownPrices() []string {
	return []string{"price_basic", "price_standard", "price_premium", "price_pro"}
}
