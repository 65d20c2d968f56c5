package main

import (
	"path/filepath"
	"testing"

	"github.com/openmined/niraclient/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_EnvironmentOverrides(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "cfg")
	t.Setenv(envConfigPath, cfgPath)
	t.Setenv(envAuthURL, "https://auth.example.com")
	t.Setenv(envUploadServiceHost, "upload.example.com")
	t.Setenv("NIRA_TOKEN_EXCHANGE", "true")

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--org", testOrg, "--token-expires", "600"}))

	s, err := loadSettings(cmd)
	require.NoError(t, err)
	assert.Equal(t, testOrg, s.Org)
	assert.Equal(t, cfgPath, s.ConfigPath)
	assert.Equal(t, "https://auth.example.com", s.AuthURL)
	assert.Equal(t, "upload.example.com", s.UploadServiceHost)
	assert.True(t, s.TokenExchange)
	assert.Equal(t, 600, s.TokenExpires)
}

func TestLoadSettings_FlagsWinOverEnvironment(t *testing.T) {
	t.Setenv(envAuthURL, "https://auth.example.com")

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--auth-url", "https://auth.local"}))

	s, err := loadSettings(cmd)
	require.NoError(t, err)
	assert.Equal(t, "https://auth.local", s.AuthURL)
}

func TestSettings_SDKConfigPrefersRuntimeAuthURL(t *testing.T) {
	s := &settings{AuthURL: "https://auth.local", TokenExchange: true, TokenExpires: 900}
	cfg := &config.OrgConfig{
		Org:          testOrg,
		APIKeyID:     testKeyID,
		APIKeySecret: testKeySecret,
		APIToken:     "cached",
		AuthURL:      config.DefaultAuthURL,
	}

	got := s.sdkConfig(cfg, nil)
	assert.Equal(t, "https://auth.local", got.AuthURL)
	assert.Equal(t, "cached", got.APIToken)
	assert.True(t, got.UseTokenExchange)
	assert.Equal(t, 900, got.TokenExpiresIn)
	assert.Nil(t, got.TokenStore)
}
