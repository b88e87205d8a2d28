package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"hackernews/auth"
)

var tokenUserID uint

// TokenCmd 为指定用户签发 token，便于本地调试
var TokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign an auth token for a user id",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUserID == 0 {
			return errors.New("--user is required")
		}
		if Cfg.Auth.Secret == "" {
			return errors.New("auth.secret is required")
		}
		token, err := auth.NewIssuer(Cfg.Auth.Secret, Cfg.Auth.TokenTTL).Sign(tokenUserID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	TokenCmd.Flags().UintVarP(&tokenUserID, "user", "u", 0, "user id to put in the token")
	RootCmd.AddCommand(TokenCmd)
}
