package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/openmined/niraclient/internal/utils"
	"gopkg.in/ini.v1"
)

const orgDomainSuffix = ".nira.app"

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".niraclient-config")
	DefaultAuthURL    = "https://auth.nira.app"
)

const configHint = "did you run 'nira configure' or pass --org for a configured org?"

var (
	ErrNoOrg       = errors.New("config: org must be defined")
	ErrInvalidOrg  = errors.New("config: org must end with " + orgDomainSuffix)
	ErrNoKeyID     = errors.New("config: api key id must be defined")
	ErrNoKeySecret = errors.New("config: api key secret must be defined")
	ErrNoAuthURL   = errors.New("config: auth url must be defined")
)

// OrgConfig holds the credentials for one Nira organization.
type OrgConfig struct {
	Org             string
	APIKeyID        string
	APIKeySecret    string
	APIToken        string
	APITokenExpires int64
	AuthURL         string
}

func (c *OrgConfig) Validate() error {
	var err error
	switch {
	case c.Org == "":
		err = ErrNoOrg
	case !strings.HasSuffix(c.Org, orgDomainSuffix):
		err = ErrInvalidOrg
	case c.APIKeyID == "":
		err = ErrNoKeyID
	case c.APIKeySecret == "":
		err = ErrNoKeySecret
	case c.AuthURL == "":
		err = ErrNoAuthURL
	}
	if err != nil {
		return fmt.Errorf("%w (%s)", err, configHint)
	}
	return nil
}

// The file is INI: a [general] section whose org key names the default org,
// then one section per org. Key names are case-insensitive and written in
// lower case.
const (
	sectionGeneral = "general"

	keyDefaultOrg      = "org"
	keyAPIKeyID        = "apiKeyId"
	keyAPIKeySecret    = "apiKeySecret"
	keyAPIToken        = "apiToken"
	keyAPITokenExpires = "apiTokenExpires"
	keyAuthURL         = "niraAuthUrl"
)

var loadOptions = ini.LoadOptions{
	InsensitiveKeys: true,
	// secrets may contain '#' or ';'
	IgnoreInlineComment: true,
}

// fileLayout is the decoded file, the raw INI kept so that sections and keys
// this client does not know about survive a rewrite.
type fileLayout struct {
	file *ini.File
}

func (l *fileLayout) defaultOrg() string {
	return l.value(sectionGeneral, keyDefaultOrg)
}

func (l *fileLayout) orgCount() int {
	n := 0
	for _, name := range l.file.SectionStrings() {
		if name != ini.DefaultSection && name != sectionGeneral {
			n++
		}
	}
	return n
}

func (l *fileLayout) value(section, key string) string {
	sec, err := l.file.GetSection(section)
	if err != nil {
		return ""
	}
	k, err := sec.GetKey(key)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(k.String())
}

func (l *fileLayout) org(name string) (*OrgConfig, error) {
	cfg := &OrgConfig{
		Org:          name,
		APIKeyID:     l.value(name, keyAPIKeyID),
		APIKeySecret: l.value(name, keyAPIKeySecret),
		APIToken:     l.value(name, keyAPIToken),
		AuthURL:      l.value(name, keyAuthURL),
	}
	if raw := l.value(name, keyAPITokenExpires); raw != "" {
		expires, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: decode [%s] %s: %w", name, keyAPITokenExpires, err)
		}
		cfg.APITokenExpires = expires
	}
	return cfg, nil
}

func (l *fileLayout) setOrg(cfg *OrgConfig) {
	sec := l.file.Section(cfg.Org)
	sec.Key(keyAPIToken).SetValue(cfg.APIToken)
	sec.Key(keyAPITokenExpires).SetValue(strconv.FormatInt(cfg.APITokenExpires, 10))
	sec.Key(keyAPIKeyID).SetValue(cfg.APIKeyID)
	sec.Key(keyAPIKeySecret).SetValue(cfg.APIKeySecret)
	if cfg.AuthURL != "" && cfg.AuthURL != DefaultAuthURL {
		sec.Key(keyAuthURL).SetValue(cfg.AuthURL)
	}
}

func (l *fileLayout) setDefaultOrg(org string) {
	l.file.Section(sectionGeneral).Key(keyDefaultOrg).SetValue(org)
}

// Store reads and writes the credential file. Every read-modify-write holds
// mu and an exclusive flock on a sibling lock file, so token refreshes from
// parallel goroutines and parallel processes serialize. Writes replace the
// file by rename, readers never see a partial file.
type Store struct {
	path string
	mu   sync.RWMutex
	lock *flock.Flock
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the config for org, or for the default org when org is empty.
// A missing file yields an empty config that fails Validate.
func (s *Store) Load(org string) (*OrgConfig, error) {
	s.mu.RLock()
	layout, err := s.read()
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if org == "" {
		org = layout.defaultOrg()
	}

	cfg := &OrgConfig{Org: org}
	if org != "" {
		if cfg, err = layout.org(org); err != nil {
			return nil, err
		}
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	return cfg, nil
}

// DefaultOrg returns the org stored under general.org.
func (s *Store) DefaultOrg() (string, error) {
	s.mu.RLock()
	layout, err := s.read()
	s.mu.RUnlock()
	if err != nil {
		return "", err
	}
	return layout.defaultOrg(), nil
}

// Save writes cfg's section. The default org is only changed when forced,
// when none is set yet, or when cfg's org is the only one in the file.
func (s *Store) Save(cfg *OrgConfig, forceDefault bool) error {
	if cfg.Org == "" {
		return ErrNoOrg
	}

	return s.update(func(layout *fileLayout) {
		layout.setOrg(cfg)

		if forceDefault || layout.defaultOrg() == "" || layout.orgCount() <= 1 {
			layout.setDefaultOrg(cfg.Org)
		}
	})
}

// SaveToken persists a freshly exchanged API token for org.
func (s *Store) SaveToken(org, token string, expires int64) error {
	return s.update(func(layout *fileLayout) {
		sec := layout.file.Section(org)
		sec.Key(keyAPIToken).SetValue(token)
		sec.Key(keyAPITokenExpires).SetValue(strconv.FormatInt(expires, 10))
		if layout.defaultOrg() == "" {
			layout.setDefaultOrg(org)
		}
	})
}

func (s *Store) update(mutate func(*fileLayout)) error {
	if err := utils.EnsureParent(s.path); err != nil {
		return fmt.Errorf("config: ensure dir: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("config: lock %s: %w", s.lock.Path(), err)
	}
	defer s.lock.Unlock()

	layout, err := s.read()
	if err != nil {
		return err
	}

	mutate(layout)

	var buf bytes.Buffer
	if _, err := layout.file.WriteTo(&buf); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	data := buf.Bytes()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("config: replace: %w", err)
	}
	return nil
}

func (s *Store) read() (*fileLayout, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &fileLayout{file: ini.Empty(loadOptions)}, nil
	} else if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", s.path, err)
	}

	file, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", s.path, err)
	}
	return &fileLayout{file: file}, nil
}
