// Package cli is the terminal front end of the dashboard. Every command
// drives the same orchestrator and mutation service the HTTP API uses.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/journal"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/pkg/utilities"
)

var (
	version = "dev"
	commit  = "unknown"
)

type app struct {
	configPath string
	verbose    bool

	clock           clockwork.Clock
	stdinIsTerminal func() bool

	cfg    *config.Config
	logger *zap.SugaredLogger
	svc    *user.UserService
	db     *sqlx.DB
}

func newApp() *app {
	return &app{
		clock: clockwork.NewRealClock(),
		stdinIsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

// Execute runs the CLI and exits non-zero on error. It is called by main.main().
func Execute() {
	a := newApp()
	if err := a.execute(a.rootCmd()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pitchfork-dashboard",
		Short: "Browse and manage users of the remote user service",
		Long: `pitchfork-dashboard lists users page by page or as one growing list,
and creates, edits and deletes them through the remote user service.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging on stderr")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file path (default is $DASHBOARD_CONFIG)")

	root.AddCommand(
		a.listCmd(),
		a.getCmd(),
		a.createCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.watchCmd(),
		a.configCmd(),
	)
	return root
}

func (a *app) loadConfig() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	if a.configPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		a.cfg = cfg
		return cfg, nil
	}
	cfg, err := config.LoadFromFile(a.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// service wires config, logger, Fetch Client, journal and orchestrator on
// first use.
func (a *app) service(ctx context.Context) (*user.UserService, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	a.logger = zap.NewNop().Sugar()
	if a.verbose {
		lg, err := utilities.Init(utilities.Config{Level: "debug", Dev: true})
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		a.logger = lg.Sugar()
	}

	remote, err := cfg.NewRemote(a.logger)
	if err != nil {
		return nil, err
	}

	js, db, err := journal.Open(ctx, database.ConfigFromEnv(), a.logger)
	if err != nil {
		return nil, err
	}
	a.db = db

	opts := cfg.ListOptions()
	opts.Clock = a.clock
	opts.Logger = a.logger
	list := user.NewOrchestrator(remote, opts)
	a.svc = user.NewUserService(remote, list, journal.AsRecorder(js), a.logger)
	return a.svc, nil
}

// execute runs root and releases what the command opened, whether or not it
// succeeded.
func (a *app) execute(root *cobra.Command) error {
	defer a.close()
	return root.Execute()
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
