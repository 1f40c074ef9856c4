package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/huangsam/repopulse/core/extract"
	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/ruleset"
	"github.com/huangsam/repopulse/schema"
	"github.com/klauspost/compress/zstd"
)

// currentCacheVersion defines the version of the cached payload layout
const currentCacheVersion = 1

// cacheTTL is how long a cached result stays valid.
const cacheTTL = 7 * 24 * time.Hour

// EncodeAll and DecodeAll are safe for concurrent use.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// cachedAnalyzeRepository serves a repository result from the cache when a fresh entry exists.
func cachedAnalyzeRepository(ctx context.Context, client contract.GitClient, target schema.RepoTarget, dateRange schema.DateRange, snap *ruleset.Snapshot, opts Options) schema.RepositoryResult {
	store := opts.Cache
	if store == nil {
		return AnalyzeRepository(ctx, client, target, dateRange, snap, opts)
	}

	key, ok := generateCacheKey(ctx, client, target, dateRange, snap, opts)
	if !ok {
		// Unkeyable repositories (missing path, no HEAD) go straight to analysis,
		// which reports the real error.
		return AnalyzeRepository(ctx, client, target, dateRange, snap, opts)
	}

	if result, hit := checkCacheHit(store, key); hit {
		opts.Metrics.RecordCache(ctx, true)
		result.Name = RepositoryName(target)
		result.Path = target.Path
		result.Cached = true
		return result
	}
	opts.Metrics.RecordCache(ctx, false)

	result := AnalyzeRepository(ctx, client, target, dateRange, snap, opts)
	if !result.Failed() {
		storeResult(store, key, result)
	}
	return result
}

// checkCacheHit attempts to retrieve and validate a cached result
func checkCacheHit(store contract.CacheStore, key string) (schema.RepositoryResult, bool) {
	data, version, ts, err := store.Get(key)
	if err != nil || data == nil {
		return schema.RepositoryResult{}, false
	}
	if version != currentCacheVersion || time.Since(time.Unix(ts, 0)) > cacheTTL {
		return schema.RepositoryResult{}, false
	}
	result, err := decodeResult(data)
	if err != nil {
		return schema.RepositoryResult{}, false
	}
	return result, true
}

// storeResult writes the result; cache write failures never fail an analysis.
func storeResult(store contract.CacheStore, key string, result schema.RepositoryResult) {
	data, err := encodeResult(result)
	if err != nil {
		return
	}
	if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
		contract.LogWarn("Failed to write result cache", err)
	}
}

func encodeResult(result schema.RepositoryResult) ([]byte, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

func decodeResult(data []byte) (schema.RepositoryResult, error) {
	var result schema.RepositoryResult
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return result, fmt.Errorf("failed to decompress cached result: %w", err)
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("failed to decode cached result: %w", err)
	}
	return result, nil
}

// generateCacheKey hashes everything that can change a repository result.
// It reports false when the repository cannot be keyed.
func generateCacheKey(ctx context.Context, client contract.GitClient, target schema.RepoTarget, dateRange schema.DateRange, snap *ruleset.Snapshot, opts Options) (string, bool) {
	if extract.CheckRepository(target.Path) != nil {
		return "", false
	}
	// Include repo hash to invalidate cache when repository state changes
	head, err := client.GetRepoHash(ctx, target.Path)
	if err != nil || head == "" {
		return "", false
	}
	abs, err := filepath.Abs(target.Path)
	if err != nil {
		abs = target.Path
	}

	key := fmt.Sprintf("%s|%s|%s|%s|%s|%t|%d",
		abs,
		dateRange.StartDay(),
		dateRange.EndDay(),
		head,
		snap.Fingerprint(),
		opts.ScanDiffs,
		opts.MaxDiffBytes,
	)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key))), true
}
