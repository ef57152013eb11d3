package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mspro-labs/treedb/internal/config"
	"mspro-labs/treedb/internal/fetcher"
)

var (
	configPath string
	baseURL    string
	delayMS    int
	fetcherKey string
)

var rootCmd = &cobra.Command{
	Use:   "treedb",
	Short: "treedb scrapes species profiles from the Agroforestree database.",
	Long: `treedb fetches species profile pages from the World Agroforestry
Agroforestree database, extracts the species name and native range, and can
store the results locally for semantic search.

Content and research belong to the original authors:
Orwa C, Mutua A, Kindt R, Jamnadass R, Simons A. 2009. Agroforestree Database:
a tree reference and selection guide version 4.0. World Agroforestry Centre, Kenya.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// newFetcher is swapped out in tests.
var newFetcher = fetcher.New

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "site config YAML (default $CONFIG_PATH or config.yaml)")
	flags.StringVar(&baseURL, "base-url", "", "override the profile base URL")
	flags.IntVar(&delayMS, "delay", -1, "override the delay between requests in milliseconds")
	flags.StringVar(&fetcherKey, "fetcher", "", `override the fetcher ("http" or "browser")`)
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfigs resolves the env config and the site config with flag overrides applied.
func loadConfigs() (config.AppConfig, *config.SiteConfig, error) {
	appCfg, err := config.GetAppConfig()
	if err != nil {
		return config.AppConfig{}, nil, fmt.Errorf("config error: %w", err)
	}
	if configPath != "" {
		appCfg.ConfigPath = configPath
	}

	siteCfg, err := config.LoadSiteConfig(appCfg.ConfigPath)
	if err != nil {
		return config.AppConfig{}, nil, fmt.Errorf("failed to load site config: %w", err)
	}
	if baseURL != "" {
		siteCfg.BaseURL = baseURL
	}
	if delayMS >= 0 {
		siteCfg.RequestDelayMS = delayMS
	}
	if fetcherKey != "" {
		siteCfg.Fetcher = fetcherKey
	}
	if err := siteCfg.Validate(); err != nil {
		return config.AppConfig{}, nil, err
	}
	return appCfg, siteCfg, nil
}
