// Package bootstrap opens the backends a configuration selects. The
// commands share it so that extraction, pipeline and server see the same
// objects and watermarks.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"natgas-forecast/internal/config"
	"natgas-forecast/internal/datasets"
	"natgas-forecast/internal/eia"
	"natgas-forecast/internal/noaa"
	"natgas-forecast/internal/storage"
	"natgas-forecast/internal/storage/cache"
	chstore "natgas-forecast/internal/storage/clickhouse"
	"natgas-forecast/internal/storage/memory"
	"natgas-forecast/internal/storage/migrations"
	"natgas-forecast/internal/storage/minio"
	pgstore "natgas-forecast/internal/storage/postgres"
	"natgas-forecast/internal/storage/sqlite"
	"natgas-forecast/internal/watermark"
)

// Stores holds the opened backends. Close releases them in reverse order.
type Stores struct {
	Objects    storage.ObjectStore
	Watermarks storage.WatermarkStore
	Curated    storage.CuratedStore // nil unless requested

	closers []func()
}

// Close releases every backend.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Open opens the object store (with its caches), the watermark store
// (over the uncached objects unless Postgres holds it) and,
// when withCurated is set, the curated store. A ClickHouse DSN selects
// ClickHouse for curated rows; otherwise they are kept in memory.
func Open(ctx context.Context, cfg *config.Config, withCurated bool, logger *zap.Logger) (*Stores, error) {
	s := &Stores{}
	fail := func(err error) (*Stores, error) {
		s.Close()
		return nil, err
	}

	objects, backing, err := openObjects(ctx, cfg, s, logger)
	if err != nil {
		return fail(err)
	}
	s.Objects = objects

	switch cfg.Watermarks.Backend {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Watermarks.PostgresDSN)
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		s.closers = append(s.closers, pool.Close)
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			return fail(fmt.Errorf("postgres migrations: %w", err))
		}
		if len(applied) > 0 {
			logger.Info("postgres migrations applied", zap.Strings("versions", applied))
		}
		s.Watermarks = pgstore.NewWatermarkStore(pool)
	default:
		// Update rewrites the whole document from what it reads, so it must
		// never see a cached copy.
		s.Watermarks = watermark.New(backing, watermark.Options{Logger: logger})
	}

	if withCurated {
		if dsn := cfg.Pipeline.ClickHouseDSN; dsn != "" {
			conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
			if err != nil {
				return fail(fmt.Errorf("clickhouse migrations: %w", err))
			}
			s.closers = append(s.closers, func() { conn.Close() })
			s.Curated = chstore.NewCuratedStore(conn)
		} else {
			s.Curated = memory.NewCuratedStore()
		}
	}

	logger.Info("backends opened",
		zap.String("objects", cfg.Storage.Backend),
		zap.String("watermarks", cfg.Watermarks.Backend),
		zap.Bool("clickhouse", withCurated && cfg.Pipeline.ClickHouseDSN != ""))
	return s, nil
}

// openObjects returns the cached object store and the backing store beneath
// its caches.
func openObjects(ctx context.Context, cfg *config.Config, s *Stores, logger *zap.Logger) (cached, backing storage.ObjectStore, err error) {
	var objects storage.ObjectStore
	switch cfg.Storage.Backend {
	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, func() { db.Close() })
		objects = db
	case "minio":
		m := cfg.Storage.MinIO
		store, err := minio.NewObjectStore(ctx, minio.Options{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			UseSSL:    m.UseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		objects = store
	default:
		objects = memory.NewObjectStore()
	}
	backing = objects

	c := cfg.Storage.Cache
	if c.RedisAddr != "" {
		r, err := cache.NewRedis(ctx, objects, cache.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.Password,
			DB:       c.RedisDB,
			TTL:      c.RedisTTL,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, func() { r.Close() })
		objects = r
	}
	if c.LRUSize > 0 {
		l, err := cache.NewLRU(objects, c.LRUSize)
		if err != nil {
			return nil, nil, err
		}
		objects = l
	}
	return objects, backing, nil
}

// Clients builds the upstream API clients from cfg.
func Clients(cfg *config.Config, logger *zap.Logger) datasets.Clients {
	return datasets.Clients{
		EIA: eia.NewClient(eia.Config{
			APIKey:  cfg.EIA.APIKey,
			BaseURL: cfg.EIA.BaseURL,
			Timeout: cfg.EIA.Timeout,
			Logger:  logger,
		}),
		NOAA: noaa.NewClient(noaa.Config{
			Token:      cfg.NOAA.Token,
			URL:        cfg.NOAA.URL,
			Timeout:    cfg.NOAA.Timeout,
			MaxRetries: cfg.NOAA.MaxRetries,
			Logger:     logger,
		}),
	}
}
