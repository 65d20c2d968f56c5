package nirasdk

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/imroc/req/v3"
	"github.com/openmined/niraclient/internal/utils"
	"github.com/openmined/niraclient/internal/version"
)

const (
	HeaderUserAgent     = "User-Agent"
	HeaderAPIKey        = "x-api-key"
	HeaderAPIToken      = "x-api-token"
	HeaderNiraOrg       = "x-nira-org"
	HeaderAPIKeyID      = "x-api-key-id"
	HeaderAPIKeySecret  = "x-api-key-secret"
	HeaderClientDevice  = "x-nira-client-device"
	defaultRetryBackoff = 1 * time.Second
)

// MaxAttempts is the total number of tries per request, first one included.
const MaxAttempts = 5

// retryStatuses are retried in addition to connection level failures.
var retryStatuses = map[int]bool{
	http.StatusUnauthorized:          true,
	http.StatusRequestEntityTooLarge: true,
	http.StatusTooManyRequests:       true,
	http.StatusNotImplemented:        true,
	http.StatusBadGateway:            true,
	http.StatusServiceUnavailable:    true,
	http.StatusGatewayTimeout:        true,
}

func shouldRetry(resp *req.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil || resp.Response == nil {
		return false
	}
	return retryStatuses[resp.StatusCode]
}

// newHTTPClient builds the shared transport: user agent, JSON codec and the
// uniform retry policy every call goes through.
func newHTTPClient(cfg *Config) *req.Client {
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	client := req.C().
		SetBaseURL(cfg.baseURL()).
		SetUserAgent(version.UserAgent()).
		SetCommonRetryCount(MaxAttempts-1).
		SetCommonRetryBackoffInterval(backoff, backoff*(1<<(MaxAttempts-1))).
		SetCommonRetryCondition(shouldRetry).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	if utils.HWID != "" {
		client.SetCommonHeader(HeaderClientDevice, utils.HWID)
	}

	if cfg.PrintRequests || cfg.PrintResponses {
		client.SetCommonDumpOptions(&req.DumpOptions{
			Output:         cfg.DumpOutput,
			RequestHeader:  cfg.PrintRequests,
			RequestBody:    cfg.PrintRequests,
			ResponseHeader: cfg.PrintResponses,
			ResponseBody:   cfg.PrintResponses,
		}).EnableDumpAll()
	}

	return client
}
