package nirasdk

import "time"

const (
	apiKeyAuth = "api-key-auth"

	// tokens expiring within this window are refreshed before use
	tokenRefreshMargin = 30 * time.Minute

	// upper bound on a shared exchange, retries included
	exchangeTimeout = 2 * time.Minute
)

// TokenResponse is the auth server reply to a key exchange.
type TokenResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}
