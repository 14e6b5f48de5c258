package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bavix/avwatch/internal/auth"
	customerrors "github.com/bavix/avwatch/internal/errors"
)

func newTokenCmd() *cobra.Command {
	var (
		role    string
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if cfg.HTTP.AuthSecret == "" {
				return customerrors.ErrAuthSecretNotConfigured
			}

			if !auth.IsKnownRole(role) {
				return customerrors.ErrUnknownAuthRoleWithName(role)
			}

			svc, err := auth.NewService(cfg.HTTP.AuthSecret)
			if err != nil {
				return err
			}

			token, err := svc.IssueToken(subject, role, ttl)
			if err != nil {
				return err
			}

			zerolog.Ctx(cmd.Context()).Debug().
				Str("subject", subject).
				Str("role", role).
				Dur("ttl", ttl).
				Msg("token issued")

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)

			return err
		},
	}
	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "Role: admin, operator, viewer")
	cmd.Flags().StringVar(&subject, "subject", "avwatch-cli", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "Token lifetime")

	return cmd
}
