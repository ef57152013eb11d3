package embedder

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"mspro-labs/treedb/internal/ai"
	"mspro-labs/treedb/internal/db"
)

var logger = log.New(os.Stderr, "EMBEDDER: ", log.LstdFlags|log.Lshortfile)

// DefaultInterval keeps well under the free-tier quota (about 60 RPM).
const DefaultInterval = time.Second

// Run embeds every stored species that has no vector yet and returns how many
// were stored. Per-species failures are logged and skipped.
func Run(ctx context.Context, database *sql.DB, client ai.Embedder, interval time.Duration) (int, error) {
	targets, err := db.GetUnembeddedSpecies(database)
	if err != nil {
		return 0, fmt.Errorf("failed to load species to embed: %w", err)
	}

	if len(targets) == 0 {
		logger.Println("All stored species are already embedded.")
		return 0, nil
	}
	logger.Printf("Found %d species to embed...", len(targets))

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	ids := make([]int, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	count := 0
	for _, id := range ids {
		if err := limiter.Wait(ctx); err != nil {
			return count, err
		}

		blob, _, err := client.EmbedString(ctx, targets[id])
		if err != nil {
			logger.Printf("Error embedding species %d: %v", id, err)
			continue
		}

		if err := db.UpdateEmbedding(database, id, blob); err != nil {
			logger.Printf("Error saving embedding for species %d: %v", id, err)
			continue
		}
		count++
	}

	logger.Printf("Embedded %d of %d species.", count, len(ids))
	return count, nil
}
