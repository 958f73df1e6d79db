package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sternrassler/jobsuche-client/pkg/client"
	"github.com/Sternrassler/jobsuche-client/pkg/logging"
)

// app holds what the subcommands share once the root command initialized.
type app struct {
	configPath string
	viper      *viper.Viper
	cfg        *appConfig
	logger     zerolog.Logger
	client     *client.Client
	closeStore func() error
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	a := &app{viper: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "jobsuche",
		Short: "Search the Bundesagentur für Arbeit job board",
		Long: `jobsuche queries the Jobsuche API of the Bundesagentur für Arbeit.
It searches listings, fetches listing details and employer logos, and can
serve the same operations over HTTP with Prometheus metrics.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.initialize,
		PersistentPostRunE: a.shutdown,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default is ./jobsuche.yaml)")
	flags.String("base-url", client.DefaultBaseURL, "Jobsuche API base URL")
	flags.String("api-key", client.DefaultAPIKey, "API key sent as X-API-Key")
	flags.Duration("timeout", client.DefaultConfig().RequestTimeout, "per-attempt request timeout")
	flags.Float64("rps", 0, "client-side request rate limit (0 disables)")
	flags.String("redis-url", "", "Redis URL for a cooldown shared between processes")
	flags.Bool("retry", true, "retry transient failures")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")

	rootCmd.AddCommand(newSearchCmd(a))
	rootCmd.AddCommand(newDetailsCmd(a))
	rootCmd.AddCommand(newLogoCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// initialize loads the configuration, sets up logging, and creates the client.
func (a *app) initialize(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(a.viper, a.configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	lc := cfg.loggingConfig()
	lc.Output = cmd.ErrOrStderr()
	logging.Setup(lc)
	a.logger = logging.NewLogger("jobsuche-cli")

	cc, closeStore, err := cfg.clientConfig(logging.NewLogger("jobsuche-client"))
	if err != nil {
		return err
	}
	a.closeStore = closeStore

	a.client, err = client.New(cc)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	a.logger.Debug().
		Str("base_url", cfg.BaseURL).
		Bool("retry", cfg.Retry.Enabled).
		Bool("shared_cooldown", cfg.RedisURL != "").
		Msg("Client initialized")

	return nil
}

func (a *app) shutdown(*cobra.Command, []string) error {
	if a.client != nil {
		a.client.Close()
	}
	if a.closeStore != nil {
		return a.closeStore()
	}
	return nil
}
