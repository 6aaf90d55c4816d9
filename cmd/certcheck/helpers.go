package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/Veraticus/certcheck/internal/config"
	"github.com/Veraticus/certcheck/internal/engine"
	"github.com/Veraticus/certcheck/internal/extract"
	"github.com/Veraticus/certcheck/internal/ocr"
	"github.com/Veraticus/certcheck/internal/service"
	"github.com/Veraticus/certcheck/internal/storage"
	"github.com/Veraticus/certcheck/internal/verify"
)

// initStorage opens the configured store and brings its schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	cfg, err := config.LoadStorageConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	var store service.Storage
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err = storage.NewPostgresStorage(cfg.URL)
	default:
		store, err = storage.NewSQLiteStorage(cfg.Path)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// app holds the collaborators shared by the verification commands.
type app struct {
	store   service.Storage
	lookup  service.RecordLookup
	cache   *storage.CachedLookup
	closers []func() error
}

// openApp initializes storage and, when cache.redis_addr is set, the Redis
// lookup cache. A cache that cannot be reached is logged and skipped.
func openApp(ctx context.Context) (*app, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, err
	}
	a := &app{store: store, lookup: store, closers: []func() error{store.Close}}

	cfg, err := config.LoadStorageConfig(viper.GetViper())
	if err != nil {
		a.Close()
		return nil, err
	}
	if cfg.RedisAddr != "" {
		client, err := storage.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Warn("Redis cache unavailable, continuing without it", "addr", cfg.RedisAddr, "error", err)
		} else {
			a.cache = storage.NewCachedLookup(store, client, cfg.CacheTTL)
			a.lookup = a.cache
			a.closers = append(a.closers, client.Close)
		}
	}
	return a, nil
}

// Close releases every resource in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("Failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

// invalidate drops a seat from the lookup cache, if one is configured.
func (a *app) invalidate(ctx context.Context, seatNo string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Invalidate(ctx, seatNo); err != nil {
		slog.Warn("Failed to invalidate cached certificate", "seat_no", seatNo, "error", err)
	}
}

func buildExtractor() (*extract.Extractor, error) {
	rules, err := config.LoadExtractionRules(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return extract.New(rules)
}

func buildVerifier(lookup service.RecordLookup) (*verify.Verifier, error) {
	cfg, err := config.LoadVerifierConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return verify.NewWithConfig(lookup, cfg)
}

// buildReader creates the OCR document reader for the configured engine.
// The returned close function must be called when the reader is done.
func buildReader(ctx context.Context) (*ocr.DocumentReader, func() error, error) {
	cfg, err := config.LoadOCRConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	var eng ocr.Engine
	closeFn := func() error { return nil }
	switch cfg.Engine {
	case config.EngineVision:
		vision, err := ocr.NewVisionEngine(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		eng = vision
		closeFn = vision.Close
	default:
		eng = ocr.NewTesseractEngine(cfg.Languages...)
	}

	return ocr.NewDocumentReader(eng, ocr.WithPreprocessing(cfg.Preprocess)), closeFn, nil
}

// buildEngine assembles the pipeline. When withOCR is false the engine only
// accepts text submissions.
func (a *app) buildEngine(ctx context.Context, withOCR bool) (*engine.Engine, error) {
	extractor, err := buildExtractor()
	if err != nil {
		return nil, err
	}
	verifier, err := buildVerifier(a.lookup)
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{engine.WithAuditLog(a.store)}
	if withOCR {
		reader, closeFn, err := buildReader(ctx)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeFn)
		opts = append(opts, engine.WithReader(reader, reader.Source()))
	}

	return engine.New(extractor, verifier, opts...), nil
}

func concurrency() int {
	n := viper.GetInt("batch.concurrency")
	if n <= 0 {
		return engine.DefaultConcurrency
	}
	return n
}

var errNoInput = errors.New("no input provided")
