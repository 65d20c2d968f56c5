package main

import (
	"github.com/openmined/niraclient/internal/nirasdk"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "expire-sessions <email>",
		Short: "Sign a user out of every session",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(cmd *cobra.Command, sdk *nirasdk.NiraSDK, args []string) (any, error) {
			return sdk.Users.ExpireSessions(cmd.Context(), args[0])
		}),
	})
	return cmd
}
