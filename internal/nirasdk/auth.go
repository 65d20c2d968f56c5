package nirasdk

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/imroc/req/v3"
	"golang.org/x/sync/singleflight"
)

// AuthSession produces the credential headers for every request. In direct
// mode it sends the key pair as is. In exchange mode it trades the key pair
// for a short lived token and refreshes it on demand; concurrent refreshes
// collapse into a single exchange.
type AuthSession struct {
	client    *req.Client
	authURL   string
	org       string
	keyID     string
	keySecret string
	exchange  bool
	expiresIn int
	store     TokenStore
	now       func() time.Time

	group   singleflight.Group
	mu      sync.RWMutex
	token   string
	expires int64
}

func newAuthSession(client *req.Client, cfg *Config) *AuthSession {
	return &AuthSession{
		client:    client,
		authURL:   strings.TrimSuffix(cfg.AuthURL, "/"),
		org:       cfg.Org,
		keyID:     cfg.APIKeyID,
		keySecret: cfg.APIKeySecret,
		exchange:  cfg.UseTokenExchange,
		expiresIn: cfg.tokenExpiresIn(),
		store:     cfg.TokenStore,
		now:       time.Now,
		token:     cfg.APIToken,
		expires:   cfg.APITokenExpires,
	}
}

// EnsureValid returns the headers to attach to the next request, exchanging
// the key pair for a fresh token when the current one is absent or about to expire.
// The returned map is owned by the caller.
func (a *AuthSession) EnsureValid(ctx context.Context) (map[string]string, error) {
	if a.keyID == "" || a.keySecret == "" {
		return nil, &AuthError{Org: a.org, Err: ErrNoCredentials}
	}

	if !a.exchange {
		return map[string]string{HeaderAPIKey: a.keyID + ":" + a.keySecret}, nil
	}

	if token, ok := a.current(); ok {
		return map[string]string{HeaderAPIToken: token}, nil
	}

	// the flight outlives the caller that started it so that waiters sharing
	// it are not failed by someone else's cancellation
	ch := a.group.DoChan("exchange", func() (any, error) {
		// a flight that finished just before this one may already have refreshed
		if token, ok := a.current(); ok {
			return token, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exchangeTimeout)
		defer cancel()
		return a.refresh(fctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return map[string]string{HeaderAPIToken: res.Val.(string)}, nil
	}
}

// Token returns the cached token and its expiry, zero values in direct mode.
func (a *AuthSession) Token() (string, int64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token, a.expires
}

func (a *AuthSession) current() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.token == "" {
		return "", false
	}
	if a.now().Add(tokenRefreshMargin).Unix() >= a.expires {
		return "", false
	}
	return a.token, true
}

func (a *AuthSession) refresh(ctx context.Context) (string, error) {
	if a.authURL == "" {
		return "", &AuthError{Org: a.org, Err: ErrNoAuthURL}
	}

	var tokenResp TokenResponse

	r := a.client.R().
		SetContext(ctx).
		SetHeader(HeaderNiraOrg, a.org).
		SetHeader(HeaderAPIKeyID, a.keyID).
		SetHeader(HeaderAPIKeySecret, a.keySecret).
		SetSuccessResult(&tokenResp)
	if a.expiresIn > 0 {
		r.SetQueryParam("expires", strconv.Itoa(a.expiresIn))
	}

	resp, err := r.Post(a.authURL + "/" + apiKeyAuth)
	if err := handleAPIError(resp, err, "token exchange"); err != nil {
		return "", &AuthError{Org: a.org, Err: err}
	}

	if tokenResp.Token == "" {
		return "", &AuthError{Org: a.org, Err: ErrEmptyToken}
	}

	expires := tokenResp.Expires
	if expires == 0 {
		expires = a.expiryFromClaims(tokenResp.Token)
	}

	a.mu.Lock()
	a.token = tokenResp.Token
	a.expires = expires
	a.mu.Unlock()

	slog.Debug("api token refreshed", "org", a.org, "expires", time.Unix(expires, 0).Format(time.RFC3339))

	if a.store != nil {
		if err := a.store.SaveToken(a.org, tokenResp.Token, expires); err != nil {
			slog.Warn("persist api token", "org", a.org, "error", err)
		}
	}

	return tokenResp.Token, nil
}

// expiryFromClaims reads exp from the token without verifying it. The
// signature is the server's business; only the expiry matters here.
func (a *AuthSession) expiryFromClaims(token string) int64 {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Unix()
	}

	lifetime := a.expiresIn
	if lifetime <= 0 {
		lifetime = DefaultTokenExpiresIn
	}
	return a.now().Add(time.Duration(lifetime) * time.Second).Unix()
}
