package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// getFavCmd returns the definition of the fav command group. Favorites are
// always read from the backend, never from local state.
func getFavCmd(g *globalEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fav",
		Short: "Manage favorites (requires login).",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <propertyId>",
			Short: "Save a property.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := g.open(); err != nil {
					return err
				}
				if err := g.api.AddFavorite(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", args[0])
				return err
			},
		},
		&cobra.Command{
			Use:     "rm <propertyId>",
			Aliases: []string{"remove"},
			Short:   "Remove a saved property.",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := g.open(); err != nil {
					return err
				}
				if err := g.api.RemoveFavorite(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return err
			},
		},
		&cobra.Command{
			Use:     "ls",
			Aliases: []string{"list"},
			Short:   "List saved properties.",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := g.open(); err != nil {
					return err
				}
				favs, err := g.api.ListFavorites(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, favs)
			},
		},
		&cobra.Command{
			Use:   "check <propertyId>",
			Short: "Print whether a property is saved.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := g.open(); err != nil {
					return err
				}
				ok, err := g.api.CheckFavorite(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), ok)
				return err
			},
		},
	)
	return cmd
}
