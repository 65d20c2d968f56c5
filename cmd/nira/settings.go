package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/openmined/niraclient/internal/config"
	"github.com/openmined/niraclient/internal/nirasdk"
	"github.com/openmined/niraclient/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envAuthURL           = "NIRA_AUTH_URL"
	envUploadServiceHost = "NIRA_UPLOAD_SERVICE_HOST"
	envConfigPath        = "NIRA_CLIENT_CONFIG_PATH"
	envBaseURL           = "NIRA_BASE_URL"
)

// settings are the global flags after .env, NIRA_* variables and command
// line flags were merged, flags winning.
type settings struct {
	Org               string
	ConfigPath        string
	AuthURL           string
	UploadServiceHost string
	BaseURL           string
	PrintRequests     bool
	PrintResponses    bool
	TokenExchange     bool
	TokenExpires      int
	LogLevel          string
	LogFile           string
}

// loadDotEnv reads ./.env once. A missing file is fine.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	v := viper.New()
	v.SetEnvPrefix("NIRA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	_ = v.BindEnv("config", envConfigPath)
	_ = v.BindEnv("auth-url", envAuthURL)
	_ = v.BindEnv("upload-service-host", envUploadServiceHost)
	_ = v.BindEnv("base-url", envBaseURL)

	s := &settings{
		Org:               v.GetString("org"),
		ConfigPath:        v.GetString("config"),
		AuthURL:           v.GetString("auth-url"),
		UploadServiceHost: v.GetString("upload-service-host"),
		BaseURL:           v.GetString("base-url"),
		PrintRequests:     v.GetBool("print-requests"),
		PrintResponses:    v.GetBool("print-responses"),
		TokenExchange:     v.GetBool("token-exchange"),
		TokenExpires:      v.GetInt("token-expires"),
		LogLevel:          v.GetString("log-level"),
		LogFile:           v.GetString("log-file"),
	}

	if s.ConfigPath == "" {
		s.ConfigPath = config.DefaultConfigPath
	}
	path, err := utils.ResolvePath(s.ConfigPath)
	if err != nil {
		return nil, err
	}
	s.ConfigPath = path

	return s, nil
}

// sdkConfig merges stored credentials with the runtime settings.
func (s *settings) sdkConfig(cfg *config.OrgConfig, store nirasdk.TokenStore) *nirasdk.Config {
	authURL := cfg.AuthURL
	if s.AuthURL != "" {
		authURL = s.AuthURL
	}

	return &nirasdk.Config{
		Org:              cfg.Org,
		APIKeyID:         cfg.APIKeyID,
		APIKeySecret:     cfg.APIKeySecret,
		UseTokenExchange: s.TokenExchange,
		APIToken:         cfg.APIToken,
		APITokenExpires:  cfg.APITokenExpires,
		TokenExpiresIn:   s.TokenExpires,
		TokenStore:       store,
		AuthURL:          authURL,
		BaseURL:          s.BaseURL,
		PrintRequests:    s.PrintRequests,
		PrintResponses:   s.PrintResponses,
		DumpOutput:       os.Stderr,
	}
}

// newClient loads the org's credentials and returns a ready SDK.
func newClient(cmd *cobra.Command) (*nirasdk.NiraSDK, *settings, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, err
	}

	store := config.NewStore(s.ConfigPath)
	cfg, err := store.Load(s.Org)
	if err != nil {
		return nil, nil, err
	}
	if s.AuthURL != "" {
		cfg.AuthURL = s.AuthURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	sdk, err := nirasdk.New(s.sdkConfig(cfg, store))
	if err != nil {
		return nil, nil, err
	}
	return sdk, s, nil
}
