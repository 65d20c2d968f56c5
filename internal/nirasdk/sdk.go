package nirasdk

import (
	"context"

	"github.com/imroc/req/v3"
)

// transport is shared by every API group: one req client, one auth session.
type transport struct {
	client *req.Client
	auth   *AuthSession
	stats  *httpStats
}

// request returns a request carrying fresh credential headers.
func (t *transport) request(ctx context.Context) (*req.Request, error) {
	headers, err := t.auth.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}
	return t.client.R().SetContext(ctx).SetHeaders(headers), nil
}

// NiraSDK is the client for one Nira organization.
type NiraSDK struct {
	client  *req.Client
	baseURL string
	org     string
	Auth    *AuthSession
	Jobs    *JobsAPI
	Upload  *UploadAPI
	Assets  *AssetsAPI
	Groups  *GroupsAPI
	Users   *UsersAPI
	stats   *httpStats
}

// New creates a client. It never touches the network; credentials are
// checked on the first request.
func New(cfg *Config) (*NiraSDK, error) {
	if cfg == nil || cfg.Org == "" {
		return nil, ErrNoOrg
	}

	client := newHTTPClient(cfg)
	stats := &httpStats{}
	auth := newAuthSession(client, cfg)
	t := &transport{client: client, auth: auth, stats: stats}

	return &NiraSDK{
		client:  client,
		baseURL: cfg.baseURL(),
		org:     cfg.Org,
		Auth:    auth,
		Jobs:    newJobsAPI(t),
		Upload:  newUploadAPI(t),
		Assets:  newAssetsAPI(t),
		Groups:  newGroupsAPI(t),
		Users:   newUsersAPI(t),
		stats:   stats,
	}, nil
}

// Org is the organization this client is bound to.
func (s *NiraSDK) Org() string {
	return s.org
}

// BaseURL always ends in a slash.
func (s *NiraSDK) BaseURL() string {
	return s.baseURL
}

// AssetURL is where a processed asset can be viewed.
func (s *NiraSDK) AssetURL(shortUUID string) string {
	return s.baseURL + "a/" + shortUUID
}

// Stats returns the upload counters accumulated so far.
func (s *NiraSDK) Stats() HTTPStats {
	return s.stats.snapshot()
}

// Close releases idle connections.
func (s *NiraSDK) Close() {
	s.client.GetClient().CloseIdleConnections()
}
