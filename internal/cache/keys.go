package cache

const prefix = "xpro:"

// KeyProducts is the shared key for the product list.
func KeyProducts() string { return prefix + "products" }

// KeyCompanies is the shared key for the company list.
func KeyCompanies() string { return prefix + "companies" }

// KeyBasket returns the per-session basket key. sessionKey must already be
// hashed; raw session ids never reach the cache.
func KeyBasket(sessionKey string) string {
	if sessionKey == "" {
		return ""
	}
	return prefix + "basket:" + sessionKey
}
