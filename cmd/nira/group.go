package main

import (
	"github.com/openmined/niraclient/internal/nirasdk"
	"github.com/spf13/cobra"
)

func newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage user groups",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List groups as JSON",
		Args:  cobra.NoArgs,
		RunE: withClient(func(cmd *cobra.Command, sdk *nirasdk.NiraSDK, args []string) (any, error) {
			query := map[string]string{}
			if name, _ := cmd.Flags().GetString("name"); name != "" {
				query["name"] = name
			}
			return sdk.Groups.List(cmd.Context(), query)
		}),
	}
	list.Flags().String("name", "", "Filter by group name")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "get <group-uuid>",
			Short: "Print a group and its members",
			Args:  cobra.ExactArgs(1),
			RunE: withClient(func(cmd *cobra.Command, sdk *nirasdk.NiraSDK, args []string) (any, error) {
				return sdk.Groups.Get(cmd.Context(), args[0])
			}),
		},
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create a group",
			Args:  cobra.ExactArgs(1),
			RunE: withClient(func(cmd *cobra.Command, sdk *nirasdk.NiraSDK, args []string) (any, error) {
				return sdk.Groups.Create(cmd.Context(), args[0])
			}),
		},
		&cobra.Command{
			Use:   "delete <group-uuid>",
			Short: "Delete a group",
			Args:  cobra.ExactArgs(1),
			RunE: withClient(func(cmd *cobra.Command, sdk *nirasdk.NiraSDK, args []string) (any, error) {
				return sdk.Groups.Delete(cmd.Context(), args[0])
			}),
		},
	)
	return cmd
}

// withClient builds the SDK for fn and prints its result as JSON.
func withClient(fn func(cmd *cobra.Command, sdk *nirasdk.NiraSDK, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		sdk, _, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer sdk.Close()

		res, err := fn(cmd, sdk, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	}
}
