package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"mspro-labs/treedb/internal/ai"
	"mspro-labs/treedb/internal/config"
	"mspro-labs/treedb/internal/db"
	"mspro-labs/treedb/internal/embedder"
	"mspro-labs/treedb/internal/scraper"
)

var (
	scrapeIDs    []int
	scrapeSave   bool
	scrapeEmbed  bool
	scrapeFormat string
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape --id <spid> [--id <spid>...]",
	Short: "Scrape species profiles and print them",
	Long: `Fetches the profile page for each Spid, extracts the species record and prints it.
The run stops at the first page whose native range cannot be parsed.
With --save the records are upserted into the local database and embedded for search.`,
	Example: `  treedb scrape --id 404
  treedb scrape --id 404 --id 405 --delay 1000 --save`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	scrapeCmd.Flags().IntSliceVar(&scrapeIDs, "id", nil, "species id (Spid) to scrape, repeatable")
	scrapeCmd.Flags().BoolVar(&scrapeSave, "save", false, "store records in the local database")
	scrapeCmd.Flags().BoolVar(&scrapeEmbed, "embed", true, "with --save, embed new records for search")
	scrapeCmd.Flags().StringVarP(&scrapeFormat, "format", "o", "json", "output format: json or yaml")
	scrapeCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(scrapeCmd)
}

// runScrape returns instead of exiting so the fetcher (and a headless
// browser behind it) is always closed.
func runScrape(ctx context.Context, out io.Writer) error {
	// 1. Load Config
	appCfg, siteCfg, err := loadConfigs()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	// 2. Build Fetcher
	f, err := newFetcher(siteCfg)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}
	defer f.Close()

	// 3. Run Scraper
	s := scraper.New(f, siteCfg.Selectors)
	records, err := s.ScrapeAll(ctx, scrapeIDs)
	if err != nil {
		return fmt.Errorf("scraping failed: %w", err)
	}

	if err := printRecords(out, records, scrapeFormat); err != nil {
		return fmt.Errorf("failed to print records: %w", err)
	}

	if !scrapeSave {
		return nil
	}

	// 4. Save to DB
	database, err := db.Connect(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	defer database.Close()

	count, err := db.SaveSpecies(database, records, func(id int) string {
		return siteCfg.BaseURL + scraper.ProfileSuffix(id)
	})
	if err != nil {
		return fmt.Errorf("failed to save data: %w", err)
	}
	log.Printf("Upserted %d records into %s.", count, appCfg.DBPath)

	if scrapeEmbed {
		autoEmbed(ctx, appCfg, database)
	}
	return nil
}

// autoEmbed never fails the scrape: a missing API key or quota error is a warning.
func autoEmbed(ctx context.Context, appCfg config.AppConfig, database *sql.DB) {
	log.Println("Starting automatic embedding...")
	aiClient, err := ai.NewClient(ctx, appCfg)
	if err != nil {
		log.Printf("Warning: could not initialize AI for auto-embedding: %v", err)
		return
	}
	defer aiClient.Close()

	if _, err := embedder.Run(ctx, database, aiClient, embedder.DefaultInterval); err != nil {
		log.Printf("Warning: auto-embedding failed: %v", err)
	}
}
