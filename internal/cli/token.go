package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/averho/chatgate/internal/auth"
	"github.com/averho/chatgate/internal/model"
)

func newTokenCmd() *cobra.Command {
	var (
		userID   int64
		username string
		role     string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		Long: `Mint a signed access token for local development and testing.

The signing secret is read from CHATGATE_SECRET and must match the
server's JWT_SECRET. Production tokens are issued by the auth service,
not this command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("CHATGATE_SECRET")
			if secret == "" {
				return errors.New("CHATGATE_SECRET is required")
			}

			identity := model.Identity{ID: userID, Username: username}
			if role != "" {
				parsed, err := model.ParseRole(role)
				if err != nil {
					return fmt.Errorf("invalid role %q", role)
				}
				identity.GlobalRole = parsed
			}

			token, err := auth.Mint(secret, identity, ttl)
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "User id claim")
	cmd.Flags().StringVar(&username, "username", "", "Username claim")
	cmd.Flags().StringVar(&role, "role", "", "Global role claim (member, moderator, admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}
