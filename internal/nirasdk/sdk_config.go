package nirasdk

import (
	"io"
	"strings"
	"time"
)

const (
	// DefaultTokenExpiresIn is what the auth server hands out when no expiry is requested.
	DefaultTokenExpiresIn = 1200
	// MaxTokenExpiresIn is the server-enforced ceiling.
	MaxTokenExpiresIn = 14400
)

// TokenStore persists exchanged API tokens. *config.Store implements it.
type TokenStore interface {
	SaveToken(org, token string, expires int64) error
}

// Config is everything New needs. Only Org and the key pair are required.
type Config struct {
	Org          string
	APIKeyID     string
	APIKeySecret string

	// Token exchange. With UseTokenExchange unset every request carries the raw key pair.
	UseTokenExchange bool
	APIToken         string
	APITokenExpires  int64 // unix seconds
	TokenExpiresIn   int   // requested lifetime in seconds, 0 leaves it to the server
	TokenStore       TokenStore
	AuthURL          string

	// BaseURL overrides https://{org}/
	BaseURL string

	// Request/response dumps, written to DumpOutput (stderr when nil)
	PrintRequests  bool
	PrintResponses bool
	DumpOutput     io.Writer

	// RetryBackoff is the base of the exponential transport backoff, 1s when zero
	RetryBackoff time.Duration
}

func (c *Config) baseURL() string {
	base := c.BaseURL
	if base == "" {
		base = "https://" + c.Org + "/"
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

func (c *Config) tokenExpiresIn() int {
	if c.TokenExpiresIn > MaxTokenExpiresIn {
		return MaxTokenExpiresIn
	}
	return c.TokenExpiresIn
}
