package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mspro-labs/treedb/internal/ai"
	"mspro-labs/treedb/internal/db"
	"mspro-labs/treedb/internal/searcher"
	"mspro-labs/treedb/internal/web"
)

// Results scoring below this are hidden in the web UI.
const minScore = 0.2

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Web UI server",
	Run: func(cmd *cobra.Command, args []string) {
		runServer(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServer(ctx context.Context) {
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

	// 2. Initialize AI. Without a key the list page still works.
	var aiClient *ai.Client
	if c, err := ai.NewClient(ctx, appCfg); err != nil {
		log.Printf("Warning: search disabled: %v", err)
	} else {
		aiClient = c
		defer aiClient.Close()
	}

	// 3. Templates
	pages, err := web.ParsePages()
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	// 4. Routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		species, err := db.ListSpecies(database)
		if err != nil {
			log.Printf("DB error: %v", err)
			http.Error(w, "Failed to load species", http.StatusInternalServerError)
			return
		}
		if err := pages.Home.ExecuteTemplate(w, "base.html", species); err != nil {
			log.Printf("Template error: %v", err)
		}
	})

	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		if aiClient == nil {
			http.Error(w, "Search is disabled: GEMINI_API_KEY is not set", http.StatusServiceUnavailable)
			return
		}

		results, err := searcher.Perform(r.Context(), database, aiClient, query, searcher.DefaultLimit)
		if err != nil {
			log.Printf("Search error: %v", err)
			http.Error(w, "Search failed", http.StatusInternalServerError)
			return
		}

		var filtered []searcher.Result
		for _, res := range results {
			if res.Score >= minScore {
				filtered = append(filtered, res)
			}
		}

		data := struct {
			Query   string
			Results []searcher.Result
		}{
			Query:   query,
			Results: filtered,
		}
		if err := pages.Search.ExecuteTemplate(w, "base.html", data); err != nil {
			log.Printf("Template error: %v", err)
		}
	})

	// 5. Start Server
	server := &http.Server{
		Addr:         serveAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("Web UI started at http://localhost%s", serveAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
