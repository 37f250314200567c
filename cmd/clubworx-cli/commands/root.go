package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"clubworx-backend/internal/components/restyutil"
	"clubworx-backend/internal/components/telemetry"
	"clubworx-backend/internal/scrapers/clubworx"
	"clubworx-backend/internal/sessioncache"
	"clubworx-backend/internal/sessionstore"
	"clubworx-backend/pkg/configutil"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
	dumpHttp   *string
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "clubworx.json5", "The config file to read, a sibling .local file overrides it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logs.")
	dumpHttp = rootCmd.PersistentFlags().String("dump-http", "", "Write every http request/response to this directory.")
}

type env struct {
	config    Config
	telemetry telemetry.Telemetry
	client    *clubworx.Client
	store     sessionstore.Store
	cache     sessioncache.Cache
	release   func()
}

func (e *env) close(ctx context.Context) {
	if e.release != nil {
		e.release()
	}
	err := e.telemetry.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to shutdown telemetry", "err", err)
	}
}

// current is set by the root command before any subcommand runs.
var current *env

func setup(cmd *cobra.Command) error {
	telemetry.InitSlog(*verbose)

	tel, err := telemetry.SetupFromEnv(cmd.Context(), "clubworx-cli")
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	e := &env{telemetry: tel}
	current = e

	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if cfg.Email == "" {
		return fmt.Errorf("read config: email is required")
	}
	e.config = cfg

	client, err := clubworx.NewClient(clubworx.ClientOptions{
		BaseUrl:          cfg.BaseUrl,
		BypassCloudflare: cfg.BypassCloudflare,
	}, telemetry.SlogAPI{})
	if err != nil {
		return err
	}
	if *dumpHttp != "" {
		out, err := restyutil.NewFilesystemOutput(*dumpHttp)
		if err != nil {
			return err
		}
		restyutil.Instrument(client.Http(), out)
	}
	e.client = client

	store, release, err := cfg.Store.openStore()
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	e.store = store
	e.release = release

	e.cache = sessioncache.New(
		client,
		store,
		sessioncache.StaticCredentials{cfg.Email: cfg.Password},
		telemetry.SlogAPI{},
		sessioncache.Options{},
	)
	return nil
}

var rootCmd = &cobra.Command{
	Use:           "clubworx-cli",
	Short:         "clubworx-cli is a CLI for logging into clubworx and reading gym data.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if current != nil {
		current.close(context.Background())
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withSession runs fn with the session of the configured account, logging in
// again once if the stored session turns out to be expired.
func withSession(ctx context.Context, fn func(*clubworx.Session) error) error {
	return current.cache.Do(ctx, current.config.Email, fn)
}
