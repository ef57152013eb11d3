package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"mspro-labs/treedb/internal/ai"
	"mspro-labs/treedb/internal/config"
	"mspro-labs/treedb/internal/db"
	"mspro-labs/treedb/internal/searcher"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantic search over stored species",
	Long: `Uses AI to find stored species that match the meaning of your query.
Examples:
  treedb search "nitrogen fixing tree from East Africa"
  treedb search "native to South East Asia"

History commands:
  treedb search history
  treedb search clear "query string"
  treedb search clear all`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleSearch(cmd.Context(), args)
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", searcher.DefaultLimit, "number of matches to show")
	rootCmd.AddCommand(searchCmd)
}

func handleSearch(ctx context.Context, args []string) {
	// 1. Setup
	appCfg, _, err := loadConfigs()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	database, err := db.Connect(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer database.Close()

	command := strings.ToLower(args[0])

	// 2. Commands
	if command == "history" {
		entries, err := db.ListSearchHistory(database)
		if err != nil {
			log.Fatalf("Failed to list history: %v", err)
		}
		fmt.Println("Search History (Cached Queries)")
		fmt.Println("-------------------------------")
		if len(entries) == 0 {
			fmt.Println("No history found.")
			return
		}
		for _, e := range entries {
			fmt.Printf("[%s] %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.QueryText)
		}
		return
	}

	if command == "clear" {
		if len(args) < 2 {
			log.Fatal(`Usage: treedb search clear "query text" (or 'all')`)
		}
		target := strings.TrimSpace(strings.Join(args[1:], " "))
		var affected int64
		if strings.ToLower(target) == "all" {
			affected, err = db.ClearAllSearchHistory(database)
		} else {
			affected, err = db.ClearSearchHistory(database, target)
		}
		if err != nil {
			log.Fatalf("Failed to clear history: %v", err)
		}
		fmt.Printf("Done. Removed %d entry(s) from cache.\n", affected)
		return
	}

	// 3. Perform regular search
	query := strings.Join(args, " ")
	if err := performSearch(ctx, appCfg, database, query); err != nil {
		log.Fatalf("Search failed: %v", err)
	}
}

func performSearch(ctx context.Context, appCfg config.AppConfig, database *sql.DB, queryText string) error {
	aiClient, err := ai.NewClient(ctx, appCfg)
	if err != nil {
		return fmt.Errorf("failed to init AI: %w", err)
	}
	defer aiClient.Close()

	results, err := searcher.Perform(ctx, database, aiClient, queryText, searchLimit)
	if err != nil {
		return err
	}

	fmt.Printf("\nTop matches for: \"%s\"\n\n", queryText)
	if len(results) == 0 {
		fmt.Println("No embedded species yet. Run `treedb scrape --save` or `treedb embed` first.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("#%d [%.1f%% match] %s (Spid %d)\n", i+1, r.Score*100, r.Item.Name, r.Item.ID)
		fmt.Printf("   Native range: %s\n\n", strings.Join(r.Item.NativeRange, ","))
	}
	return nil
}
