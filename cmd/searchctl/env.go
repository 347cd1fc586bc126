package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-estate-backend/internal/client"
	"github.com/tbourn/go-estate-backend/internal/sysutil"
)

// globalEnv holds the persistent flags and the lazily opened client stack
// shared by every subcommand.
type globalEnv struct {
	server   string
	stateDir string
	timeout  time.Duration
	verbose  bool

	logger  zerolog.Logger
	store   *client.BadgerStorage
	api     *client.APIClient
	cache   *client.Cache
	session *client.Session
}

func defaultStateDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".searchctl")
	}
	return ".searchctl"
}

func (g *globalEnv) bindFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&g.server, fstrServer,
		sysutil.FirstNonEmpty(os.Getenv("SEARCHCTL_SERVER"), "http://localhost:4000"),
		"Base URL of the backend (env SEARCHCTL_SERVER)")
	f.StringVar(&g.stateDir, fstrStateDir,
		sysutil.FirstNonEmpty(os.Getenv("SEARCHCTL_STATE_DIR"), defaultStateDir()),
		"Directory holding the local session and search state (env SEARCHCTL_STATE_DIR)")
	f.DurationVar(&g.timeout, fstrTimeout, 15*time.Second, "Per-request timeout")
	f.BoolVarP(&g.verbose, fstrVerbose, "v", sysutil.IsTruthy(os.Getenv("SEARCHCTL_DEBUG")),
		"Verbose logging (env SEARCHCTL_DEBUG)")
}

func (g *globalEnv) configureLogging(w io.Writer) {
	level := "warn"
	if g.verbose {
		level = "debug"
	}
	g.logger = sysutil.ConfigureLogger(w, level, true)
}

// open creates the state directory and wires storage, API client and
// session. One badger store backs both cache tiers so results outlive the
// process.
func (g *globalEnv) open() error {
	if g.session != nil {
		return nil
	}
	if err := os.MkdirAll(g.stateDir, 0o700); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}
	store, err := client.OpenBadger(g.stateDir)
	if err != nil {
		return err
	}
	g.store = store
	g.api = client.NewAPIClient(g.server, g.timeout)
	g.cache = client.NewCache(store, store)
	g.session, err = client.NewSession(g.api, g.cache, g.logger)
	if err != nil {
		return err
	}
	g.logger.Debug().Str("server", g.server).Str("state_dir", g.stateDir).
		Bool("authenticated", g.session.Authenticated()).Msg("client ready")
	return nil
}

func (g *globalEnv) orchestrator() (*client.Orchestrator, error) {
	if err := g.open(); err != nil {
		return nil, err
	}
	return client.NewOrchestrator(g.api, g.cache, client.WithOrchestratorLogger(g.logger))
}

func (g *globalEnv) close() error {
	if g.store == nil {
		return nil
	}
	err := g.store.Close()
	g.store, g.session = nil, nil
	return err
}

// printJSON writes v indented to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return err
}
