package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdejongh/syncbase/pkg/auth"
	"github.com/sdejongh/syncbase/pkg/config"
)

// LoginFlags holds login command flags
type LoginFlags struct {
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

var loginFlags LoginFlags

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize access to Google Drive",
		Long: `Run the OAuth consent flow for the drive remote. The consent page is
opened in your browser and redirects to a one-shot local listener. The
resulting tokens are stored in the config file.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	cmd.Flags().StringVar(&loginFlags.ClientID, "client-id", "", "OAuth client ID (default is remote.client_id)")
	cmd.Flags().StringVar(&loginFlags.ClientSecret, "client-secret", "", "OAuth client secret (default is remote.client_secret)")
	cmd.Flags().DurationVar(&loginFlags.Timeout, "timeout", 5*time.Minute, "how long to wait for the consent")

	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	path, err := configPath()
	if err != nil {
		return err
	}

	if loginFlags.ClientID != "" {
		cfg.Remote.ClientID = loginFlags.ClientID
	}
	if loginFlags.ClientSecret != "" {
		cfg.Remote.ClientSecret = loginFlags.ClientSecret
	}
	if cfg.Remote.ClientID == "" {
		return errors.New("an OAuth client ID is required (--client-id or remote.client_id)")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), loginFlags.Timeout)
	defer cancel()

	out := cmd.OutOrStdout()
	cred, err := auth.Login(ctx, driveOAuth(cfg), func(consentURL string) error {
		fmt.Fprintf(out, "Open this URL in your browser to authorize syncbase:\n\n  %s\n\nWaiting for authorization...\n", consentURL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cfg.SetCredential(cred)
	if err := config.Save(cfg, path); err != nil {
		return err
	}

	fmt.Fprintf(out, "Logged in. Tokens saved to %s\n", path)
	return nil
}
