package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/dnscerts/certs"
	"github.com/s0up4200/dnscerts/config"
	"github.com/s0up4200/dnscerts/dnsimple"
	"github.com/s0up4200/dnscerts/filter"
)

var (
	cfgFile       string
	cfg           *config.Config
	logger        zerolog.Logger
	client        *dnsimple.Client
	operations    *certs.Operations
	filterManager *filter.Manager

	// Command flags
	dryRun    bool
	accountID string
	domain    string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dnscerts",
	Short: "Manage DNSimple SSL certificates from the command line",
	Long: `dnscerts lists, downloads, orders and renews the SSL certificates of a
DNSimple domain. Certificates can be selected with filter expressions such as
'isLetsencrypt() && expiresWithin(30)'.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "d", false, "perform a dry run without making changes")
	rootCmd.PersistentFlags().StringVar(&accountID, "account", "", "DNSimple account id (overrides config)")
	rootCmd.PersistentFlags().StringVar(&domain, "domain", "", "domain name or id (overrides config)")
}

// initializeApp loads the configuration and creates the API client
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	// Command line overrides
	if cmd.Flags().Changed("dry-run") {
		cfg.Safety.DryRun = dryRun
	}
	if accountID != "" {
		cfg.DNSimple.AccountID = accountID
	}
	if domain != "" {
		cfg.Certificates.Domain = domain
	}

	client, err = dnsimple.NewClient(cfg.DNSimple.BaseURL(),
		dnsimple.WithToken(cfg.DNSimple.Token),
		dnsimple.WithTimeout(cfg.DNSimple.Timeout),
		dnsimple.WithUserAgent(userAgent()),
		dnsimple.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create DNSimple client: %w", err)
	}

	operations = certs.NewOperations(client, cfg.DNSimple.AccountID, cfg.Certificates.Domain, logger)
	operations.SetConcurrency(cfg.Certificates.Concurrency)

	filterManager = filter.NewManager()
	if err := filterManager.RegisterFilters(cfg.Filter); err != nil {
		return fmt.Errorf("invalid filter preset: %w", err)
	}

	if cfg.Update.Check {
		notifyUpdate(cmd.Context(), repository())
	}

	logger.Debug().
		Str("url", client.BaseURL()).
		Str("account", cfg.DNSimple.AccountID).
		Str("domain", cfg.Certificates.Domain).
		Bool("dry_run", cfg.Safety.DryRun).
		Msg("Initialized")

	return nil
}

// shutdownApp stops the filter worker pool
func shutdownApp(cmd *cobra.Command, args []string) error {
	if filterManager == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return filterManager.Close(ctx)
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(os.Stderr),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func userAgent() string {
	if cfg.DNSimple.UserAgent != "" {
		return cfg.DNSimple.UserAgent
	}
	return dnsimple.DefaultUserAgent + "/" + version
}

// requireDomain fails early for commands that act on a domain
func requireDomain() error {
	if cfg.Certificates.Domain == "" {
		return fmt.Errorf("no domain configured: set certificates.domain or pass --domain")
	}
	return nil
}

// requireConfirmation reports whether a prompt should be shown. Prompts need
// a terminal on stdin, so non-interactive runs must pass --yes.
func requireConfirmation(skip bool) (bool, error) {
	if skip || !cfg.Safety.Confirm || cfg.Safety.DryRun {
		return false, nil
	}
	if !isTerminal(os.Stdin) {
		return false, fmt.Errorf("confirmation required but stdin is not a terminal, use --yes")
	}
	return true, nil
}

// parseIDs converts certificate id arguments
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid certificate id: %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// selectCertificates lists the domain's certificates and applies a filter
// preset name or expression. An empty selector matches everything.
func selectCertificates(ctx context.Context, selector string) ([]dnsimple.Certificate, error) {
	all, err := operations.SearchCertificates(ctx, nil)
	if err != nil {
		return nil, err
	}
	if selector == "" {
		return all, nil
	}

	compiled, err := filterManager.Resolve(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}

	logger.Info().Str("filter", compiled.Expression()).Msg("Filtering certificates")
	return filterManager.Evaluate(ctx, compiled, all)
}
