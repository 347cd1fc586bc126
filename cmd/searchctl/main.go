// Command searchctl drives the estate search backend from a terminal. It
// keeps the session token, the last results and the active filters in a
// badger store under --state-dir, so consecutive invocations behave like one
// browsing session.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	fstrServer   = "server"
	fstrStateDir = "state-dir"
	fstrTimeout  = "timeout"
	fstrVerbose  = "verbose"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root, g := newRootCmd()
	err := root.ExecuteContext(ctx)
	if cerr := g.close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Error().Err(err).Msg("searchctl")
		stop()
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, *globalEnv) {
	g := &globalEnv{}
	root := &cobra.Command{
		Use:           "searchctl",
		Short:         "Search listings, manage favorites and your account on the estate search backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			g.configureLogging(cmd.ErrOrStderr())
		},
	}
	g.bindFlags(root)

	root.AddCommand(
		getRegisterCmd(g),
		getLoginCmd(g),
		getLogoutCmd(g),
		getWhoamiCmd(g),
		getSearchCmd(g),
		getFilterCmd(g),
		getClearCmd(g),
		getResetCmd(g),
		getStateCmd(g),
		getHistoryCmd(g),
		getPropertyCmd(g),
		getMapCmd(g),
		getFavCmd(g),
	)
	return root, g
}
