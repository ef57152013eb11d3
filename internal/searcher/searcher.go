package searcher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"

	"mspro-labs/treedb/internal/ai"
	"mspro-labs/treedb/internal/db"
)

var logger = log.New(os.Stderr, "SEARCHER: ", log.LstdFlags|log.Lshortfile)

// DefaultLimit is how many matches Perform returns when limit <= 0.
const DefaultLimit = 5

// Result holds a single search match.
type Result struct {
	Item  db.SpeciesVector
	Score float32
}

// Perform ranks stored species by similarity to queryText.
func Perform(ctx context.Context, database *sql.DB, client ai.Embedder, queryText string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	queryVector, err := getQueryVector(ctx, database, client, queryText)
	if err != nil {
		return nil, err
	}

	species, err := db.GetSpeciesVectors(database)
	if err != nil {
		return nil, fmt.Errorf("failed to load species vectors: %w", err)
	}

	var results []Result
	for _, sv := range species {
		floats, err := ai.BytesToFloats(sv.Vector)
		if err != nil {
			logger.Printf("Skipping species %d: %v", sv.ID, err)
			continue
		}
		results = append(results, Result{Item: sv, Score: ai.CosineSimilarity(queryVector, floats)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// getQueryVector is cache-aside over the search_history table.
func getQueryVector(ctx context.Context, database *sql.DB, client ai.Embedder, text string) ([]float32, error) {
	blob, err := db.GetCachedQuery(database, text)
	if err == nil {
		return ai.BytesToFloats(blob)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.Printf("Warning: query cache lookup failed: %v", err)
	}

	logger.Printf("Cache miss for '%s'. Calling Gemini...", text)
	blob, floats, err := client.EmbedString(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	// don't fail the search if the cache write fails
	if err := db.SaveCachedQuery(database, text, blob); err != nil {
		logger.Printf("Warning: failed to save query to cache: %v", err)
	}

	return floats, nil
}
