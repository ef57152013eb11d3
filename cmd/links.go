package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mspro-labs/treedb/internal/scraper"
)

var linkPattern string

var linksCmd = &cobra.Command{
	Use:   "links [suffix]",
	Short: "List the links on a page",
	Long: `Fetches base URL + suffix and prints the href of every anchor, one per line.
With --pattern only hrefs matching the regular expression are printed.`,
	Example: `  treedb links "?Spid=404" --pattern 'Spid=\d+'`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		suffix := ""
		if len(args) == 1 {
			suffix = args[0]
		}
		return runLinks(cmd.Context(), cmd.OutOrStdout(), suffix)
	},
}

func init() {
	linksCmd.Flags().StringVarP(&linkPattern, "pattern", "p", "", "regular expression hrefs must match")
	rootCmd.AddCommand(linksCmd)
}

func runLinks(ctx context.Context, out io.Writer, suffix string) error {
	_, siteCfg, err := loadConfigs()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	f, err := newFetcher(siteCfg)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}
	defer f.Close()

	links, err := scraper.New(f, siteCfg.Selectors).DiscoverLinks(ctx, suffix, linkPattern)
	if err != nil {
		return fmt.Errorf("link discovery failed: %w", err)
	}
	for _, href := range links {
		fmt.Fprintln(out, href)
	}
	return nil
}
