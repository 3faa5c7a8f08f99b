// Package mapsource loads the domain map from the configured source.
package mapsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"domainmap/internal/blobstorage"
	"domainmap/internal/conf"
	"domainmap/internal/db"
	"domainmap/internal/logging"
	"domainmap/internal/metrics"
	"domainmap/internal/route"
)

type blobFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// newBlobFetcher is replaced in tests.
var newBlobFetcher = func(ctx context.Context, cfg blobstorage.Config) (blobFetcher, error) {
	return blobstorage.NewS3BlobStorage(ctx, cfg)
}

// Load returns the domain map named by cfg.Source. Questionable entries are
// logged as warnings but kept.
func Load(ctx context.Context, cfg *conf.Config) (route.DomainMap, error) {
	m, err := load(ctx, cfg)
	if err != nil {
		metrics.SourceLoadsTotal.WithLabelValues(cfg.Source.Type, "error").Inc()
		return nil, err
	}
	if m == nil {
		m = route.DomainMap{}
	}

	for _, w := range conf.CheckDomainMap(m) {
		logging.Logger.Warn("domain map entry", "source", cfg.Source.Type, "warning", w)
	}

	metrics.SourceLoadsTotal.WithLabelValues(cfg.Source.Type, "ok").Inc()
	metrics.DomainsConfigured.Set(float64(len(m)))
	logging.Logger.Info("domain map loaded", "source", cfg.Source.Type, "domains", len(m))

	return m, nil
}

func load(ctx context.Context, cfg *conf.Config) (route.DomainMap, error) {
	switch cfg.Source.Type {
	case conf.SourceInline:
		return cfg.DomainMap, nil

	case conf.SourceFile:
		data, err := os.ReadFile(filepath.Clean(cfg.Source.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to read domain map file: %w", err)
		}
		return conf.ParseDomainMap(data)

	case conf.SourceSQLite:
		if _, err := os.Stat(cfg.Source.Path); err != nil {
			return nil, fmt.Errorf("failed to open domain map database: %w", err)
		}
		store, err := db.InitDB(cfg.Source.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open domain map database: %w", err)
		}
		defer func() { _ = store.Close() }()
		return db.LoadDomainMap(ctx, store)

	case conf.SourceS3:
		fetcher, err := newBlobFetcher(ctx, cfg.Source.BlobStorage)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
		data, err := fetcher.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch domain map object: %w", err)
		}
		return conf.ParseDomainMap(data)

	default:
		return nil, fmt.Errorf("invalid source type: %s", cfg.Source.Type)
	}
}
