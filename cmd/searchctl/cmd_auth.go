package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-estate-backend/internal/sysutil"
)

type credentialsEnv struct {
	g        *globalEnv
	name     string
	email    string
	password string
}

func (c *credentialsEnv) bind(cmd *cobra.Command, withName bool) {
	if withName {
		cmd.Flags().StringVar(&c.name, "name", "", "Display name")
		must(cmd.MarkFlagRequired("name"))
	}
	cmd.Flags().StringVar(&c.email, "email", "", "Account e-mail")
	cmd.Flags().StringVar(&c.password, "password", "", "Password (env SEARCHCTL_PASSWORD)")
	must(cmd.MarkFlagRequired("email"))
}

func (c *credentialsEnv) resolvedPassword() (string, error) {
	pw := sysutil.FirstNonEmpty(c.password, os.Getenv("SEARCHCTL_PASSWORD"))
	if pw == "" {
		return "", errors.New("--password or SEARCHCTL_PASSWORD is required")
	}
	return pw, nil
}

// getRegisterCmd returns the definition of the register command.
func getRegisterCmd(g *globalEnv) *cobra.Command {
	env := &credentialsEnv{g: g}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in with it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := env.resolvedPassword()
			if err != nil {
				return err
			}
			if err := g.open(); err != nil {
				return err
			}
			if err := g.session.Register(cmd.Context(), env.name, env.email, pw); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "registered and signed in as %s\n", g.session.Username())
			return err
		},
	}
	env.bind(cmd, true)
	return cmd
}

// getLoginCmd returns the definition of the login command.
func getLoginCmd(g *globalEnv) *cobra.Command {
	env := &credentialsEnv{g: g}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token locally.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := env.resolvedPassword()
			if err != nil {
				return err
			}
			if err := g.open(); err != nil {
				return err
			}
			if err := g.session.Login(cmd.Context(), env.email, pw); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", g.session.Username())
			return err
		},
	}
	env.bind(cmd, false)
	return cmd
}

// getLogoutCmd returns the definition of the logout command.
func getLogoutCmd(g *globalEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session token and forget it locally.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.open(); err != nil {
				return err
			}
			if !g.session.Authenticated() {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
				return err
			}
			if err := g.session.Logout(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return err
		},
	}
}

// getWhoamiCmd returns the definition of the whoami command.
func getWhoamiCmd(g *globalEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in account.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.open(); err != nil {
				return err
			}
			p, err := g.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, p)
		},
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
