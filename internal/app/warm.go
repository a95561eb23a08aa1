package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"flipcheck/internal/pricing"
	"flipcheck/internal/storage"
	"flipcheck/internal/tier"
)

// Warm pre-populates the price cache for a list of queries, one per line.
// It bypasses per-user quotas: warming is a system job, not a user lookup.
func (a *App) Warm(ctx context.Context, opts WarmOptions) error {
	queries, err := readQueries(opts.QueriesPath)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return errors.New("queries file is empty")
	}

	warmTier, err := tier.Parse(opts.Tier)
	if err != nil {
		return fmt.Errorf("invalid --tier: %w", err)
	}

	var store *storage.Store
	if opts.DryRun {
		a.Logger.Warn().Msg("dry-run: cache will not be written")
	} else {
		var closeStore func()
		store, closeStore, err = a.openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
	}

	resolver := pricing.NewResolver(a.newProvider(), a.Logger)
	ttl := a.Config.Pricing.CacheTTL

	processed := 0
	skipped := 0
	for _, query := range queries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stats := resolver.Resolve(ctx, query, opts.Category, warmTier)
		adjusted := pricing.ApplyDiscount(warmTier, stats)
		if adjusted.SampleCount == 0 {
			skipped++
			a.Logger.Warn().Str("query", query).Msg("no listings found; skipping")
			continue
		}

		if store != nil {
			if err := putWarmEntry(ctx, store, query, opts.Category, adjusted, ttl); err != nil {
				a.Logger.Error().Err(err).Str("query", query).Msg("cache write failed")
				skipped++
				continue
			}
		}
		processed++
	}

	a.Logger.Info().Int("warmed", processed).Int("skipped", skipped).Msg("cache warm-up complete")
	if processed == 0 {
		return errors.New("no queries could be warmed")
	}
	return nil
}

func putWarmEntry(ctx context.Context, store *storage.Store, query, category string, stats pricing.Stats, ttl time.Duration) error {
	raw, err := json.Marshal(stats.Samples)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return store.PutPrice(ctx, storage.PriceCacheEntry{
		SearchQuery: pricing.NormalizeQuery(query),
		Category:    category,
		Source:      stats.Source,
		SampleCount: stats.SampleCount,
		Low:         *stats.Low,
		High:        *stats.High,
		Avg:         *stats.Avg,
		Median:      *stats.Median,
		RawSamples:  raw,
		FetchedAt:   now,
		ExpiresAt:   now.Add(ttl),
	})
}

func readQueries(path string) ([]string, error) {
	if path == "" {
		return nil, errors.New("--queries is required")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var queries []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := pricing.NormalizeQuery(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(line) < pricing.MinQueryLength {
			continue
		}
		queries = append(queries, line)
	}
	return queries, scanner.Err()
}
