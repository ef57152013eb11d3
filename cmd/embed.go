package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"mspro-labs/treedb/internal/ai"
	"mspro-labs/treedb/internal/db"
	"mspro-labs/treedb/internal/embedder"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Generate AI embeddings for stored species",
	Long:  `Finds species in the database that are missing semantic vectors and generates them using the Gemini API.`,
	Run: func(cmd *cobra.Command, args []string) {
		runEmbed(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(ctx context.Context) {
	// 1. Config & DB
	appCfg, _, err := loadConfigs()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	database, err := db.Connect(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer database.Close()

	// 2. Initialize AI
	aiClient, err := ai.NewClient(ctx, appCfg)
	if err != nil {
		log.Fatalf("Failed to initialize AI client: %v", err)
	}
	defer aiClient.Close()

	// 3. Run Shared Embedder Logic
	if _, err := embedder.Run(ctx, database, aiClient, embedder.DefaultInterval); err != nil {
		log.Fatalf("Embedding process failed: %v", err)
	}
}
