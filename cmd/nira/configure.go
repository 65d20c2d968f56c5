package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/openmined/niraclient/internal/config"
	"github.com/openmined/niraclient/internal/nirasdk"
	"github.com/openmined/niraclient/internal/utils"
	"github.com/spf13/cobra"
)

const (
	apiKeyIDLen     = 36
	apiKeySecretLen = 40
	orgSuffix       = ".nira.app"
)

var (
	errInvalidOrg    = errors.New("organization names must end with " + orgSuffix)
	errInvalidKeyID  = fmt.Errorf("the API key id must be %d characters", apiKeyIDLen)
	errInvalidSecret = fmt.Errorf("the API key secret must be %d characters", apiKeySecretLen)
	errNotATerminal  = errors.New("missing --org, --api-key-id or --api-key-secret and stdin is not a terminal")
)

func newConfigureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Store API credentials for a Nira organization",
		Long: `Store API credentials for a Nira organization.

Generate an API key in your organization's admin dashboard, e.g.
https://your-org.nira.app/admin/apikeys. Missing values are prompted for
when running in a terminal.`,
		Args: cobra.NoArgs,
		RunE: runConfigure,
	}

	cmd.Flags().String("api-key-id", "", fmt.Sprintf("API key id (%d characters)", apiKeyIDLen))
	cmd.Flags().String("api-key-secret", "", fmt.Sprintf("API key secret (%d characters)", apiKeySecretLen))
	cmd.Flags().Bool("set-default", false, "Make this org the default even if another one is configured")
	return cmd
}

func runConfigure(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	keyID, _ := cmd.Flags().GetString("api-key-id")
	keySecret, _ := cmd.Flags().GetString("api-key-secret")
	setDefault, _ := cmd.Flags().GetBool("set-default")

	store := config.NewStore(s.ConfigPath)
	cfg := &config.OrgConfig{
		Org:          strings.TrimSpace(s.Org),
		APIKeyID:     strings.TrimSpace(keyID),
		APIKeySecret: strings.TrimSpace(keySecret),
		AuthURL:      s.AuthURL,
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = config.DefaultAuthURL
	}

	verify := func(org, id, secret string) error {
		cfg.Org, cfg.APIKeyID, cfg.APIKeySecret = org, id, secret
		if err := validateCredentials(cfg); err != nil {
			return err
		}
		return verifyCredentials(cmd, s, cfg)
	}

	if cfg.Org == "" || cfg.APIKeyID == "" || cfg.APIKeySecret == "" {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return errNotATerminal
		}
		err = RunConfigureTUI(ConfigureTUIOpts{
			Org:           cfg.Org,
			APIKeyID:      cfg.APIKeyID,
			APIKeySecret:  cfg.APIKeySecret,
			ConfigPath:    s.ConfigPath,
			SubmitHandler: verify,
		})
	} else {
		err = verify(cfg.Org, cfg.APIKeyID, cfg.APIKeySecret)
	}
	if err != nil {
		return err
	}

	prevDefault, err := store.DefaultOrg()
	if err != nil {
		return err
	}
	if err := store.Save(cfg, setDefault); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s configuration for %s saved to %s\n",
		green.Render("Authorization successful,"), cyan.Render(cfg.Org), s.ConfigPath)
	fmt.Fprintf(out, "%s %s\n", gray.Render("API key"), utils.MaskSecret(cfg.APIKeyID))

	switch {
	case prevDefault == "" || prevDefault == cfg.Org:
	case setDefault:
		fmt.Fprintf(out, "Changed default org to %s (was %s)\n", cfg.Org, prevDefault)
	default:
		fmt.Fprintf(out, "Keeping existing default org %s, pass --set-default to change it\n", prevDefault)
	}
	return nil
}

func validateCredentials(cfg *config.OrgConfig) error {
	switch {
	case !strings.HasSuffix(cfg.Org, orgSuffix):
		return errInvalidOrg
	case len(cfg.APIKeyID) != apiKeyIDLen:
		return fmt.Errorf("%w (got %d)", errInvalidKeyID, len(cfg.APIKeyID))
	case len(cfg.APIKeySecret) != apiKeySecretLen:
		return fmt.Errorf("%w (got %d)", errInvalidSecret, len(cfg.APIKeySecret))
	}
	return nil
}

// verifyCredentials runs one token exchange with the new key. The exchanged
// token is kept so the next command does not need another one.
func verifyCredentials(cmd *cobra.Command, s *settings, cfg *config.OrgConfig) error {
	sdkCfg := s.sdkConfig(cfg, nil)
	sdkCfg.UseTokenExchange = true
	sdkCfg.APIToken = ""
	sdkCfg.APITokenExpires = 0

	sdk, err := nirasdk.New(sdkCfg)
	if err != nil {
		return err
	}
	defer sdk.Close()

	if _, err := sdk.Auth.EnsureValid(cmd.Context()); err != nil {
		return err
	}
	cfg.APIToken, cfg.APITokenExpires = sdk.Auth.Token()
	return nil
}
