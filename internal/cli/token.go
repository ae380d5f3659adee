package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rl1809/ventures/internal/config"
	"github.com/rl1809/ventures/internal/platform/auth"
)

// TokenCmd mints a bearer token for local testing.
func TokenCmd(configPath *string) *cobra.Command {
	var (
		agentID string
		claimed bool
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context(), *configPath)
			if err != nil {
				return err
			}

			tok, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Issue(agentID, claimed, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "agent id (uuid)")
	cmd.Flags().BoolVar(&claimed, "claimed", true, "mark the agent account as claimed")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}
