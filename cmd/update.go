package cmd

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/s0up4200/dnscerts/config"
)

const updateCheckTimeout = 5 * time.Second

var (
	version   = "dev"
	buildTime = "unknown"

	updateRepository string
	checkOnly        bool
)

// SetVersion records the build information injected at link time
func SetVersion(v, built string) {
	version = v
	buildTime = built
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVar(&updateRepository, "repo", "", "GitHub repository to update from (default is update.repository)")
	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "only report whether an update is available")
}

// initLocal replaces the root pre-run for commands that need no API access.
// The config file is optional and its credentials are not checked.
func initLocal(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Read(cfgFile)
	if err != nil {
		if cfgFile != "" {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg, err = config.Defaults(); err != nil {
			return err
		}
	}

	logger = setupLogger(cfg.Logging)
	return nil
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print version information",
	PersistentPreRunE: initLocal,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dnscerts %s (built %s, %s/%s)\n", version, buildTime, runtime.GOOS, runtime.GOARCH)
	},
}

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:               "update",
	Short:             "Update dnscerts to the latest release",
	PersistentPreRunE: initLocal,
	RunE:              runUpdate,
}

// repository returns the --repo flag, else update.repository
func repository() string {
	if updateRepository != "" {
		return updateRepository
	}
	if cfg != nil && cfg.Update.Repository != "" {
		return cfg.Update.Repository
	}
	return config.DefaultRepository
}

// latestRelease returns the newest release of repo when it is newer than current
func latestRelease(ctx context.Context, repo string, current semver.Version) (*selfupdate.Release, semver.Version, bool, error) {
	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repo))
	if err != nil {
		return nil, semver.Version{}, false, fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		return nil, semver.Version{}, false, fmt.Errorf("no release found for %s/%s in %s", runtime.GOOS, runtime.GOARCH, repo)
	}

	latestVersion, err := semver.ParseTolerant(latest.Version())
	if err != nil {
		return nil, semver.Version{}, false, fmt.Errorf("invalid release version %q: %w", latest.Version(), err)
	}

	return latest, latestVersion, latestVersion.GT(current), nil
}

// notifyUpdate logs a notice when a newer release exists. It runs at startup
// when update.check is set; failures are only logged at debug level.
func notifyUpdate(ctx context.Context, repo string) {
	current, err := semver.ParseTolerant(version)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, updateCheckTimeout)
	defer cancel()

	_, latestVersion, newer, err := latestRelease(ctx, repo, current)
	if err != nil {
		logger.Debug().Err(err).Msg("Update check failed")
		return
	}
	if newer {
		logger.Info().
			Str("current", current.String()).
			Str("latest", latestVersion.String()).
			Msg("A new version is available, run 'dnscerts update'")
	}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	current, err := semver.ParseTolerant(version)
	if err != nil {
		return fmt.Errorf("cannot update a development build (version %q)", version)
	}

	ctx := cmd.Context()
	repo := repository()

	latest, latestVersion, newer, err := latestRelease(ctx, repo, current)
	if err != nil {
		return err
	}

	if !newer {
		fmt.Printf("✓ dnscerts %s is up to date\n", current)
		return nil
	}

	if checkOnly {
		fmt.Printf("Update available: %s -> %s\n%s\n", current, latestVersion, latest.URL)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	logger.Info().
		Str("from", current.String()).
		Str("to", latestVersion.String()).
		Str("repository", repo).
		Str("path", exe).
		Msg("Updating")

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("failed to update binary: %w", err)
	}

	fmt.Printf("✓ Updated to %s\n", latestVersion)
	if latest.ReleaseNotes != "" {
		fmt.Printf("\nRelease notes:\n%s\n", latest.ReleaseNotes)
	}
	return nil
}
