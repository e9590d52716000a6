package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatsync/internal/auth"
	"github.com/iyunix/go-chatsync/internal/config"
)

// newTokenCmd mints a session token locally with the server's secret. It stands in for the identity
// provider's callback, so the sign-in policy is applied here.
func newTokenCmd() *cobra.Command {
	var opts struct {
		Email string
	}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for an email allowed by the sign-in policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			secret, fallback := cfg.SigningSecret()
			if secret == "" {
				return errors.New("JWT_SECRET_KEY must be set to issue tokens")
			}
			if fallback {
				mutedColor.Fprintln(cmd.ErrOrStderr(), "JWT_SECRET_KEY not set, signing with the development secret")
			}

			policy := auth.SignInPolicy{AllowedEmails: cfg.AllowedEmails, AllowedDomains: cfg.AllowedEmailDomains}
			token, err := policy.IssueToken(opts.Email, []byte(secret))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Email, "email", "e", "", "Identity to sign in as")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
