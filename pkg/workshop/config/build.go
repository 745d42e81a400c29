package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-workshop/pkg/workshop/emulator"
	repomemory "github.com/tendant/simple-workshop/pkg/workshop/emulator/repo/memory"
	repopg "github.com/tendant/simple-workshop/pkg/workshop/emulator/repo/postgres"
	reposqlite "github.com/tendant/simple-workshop/pkg/workshop/emulator/repo/sqlite"
	fsstorage "github.com/tendant/simple-workshop/pkg/workshop/emulator/storage/fs"
	memorystorage "github.com/tendant/simple-workshop/pkg/workshop/emulator/storage/memory"
	s3storage "github.com/tendant/simple-workshop/pkg/workshop/emulator/storage/s3"
)

// BuildEmulator creates an emulator backed by the configured catalog and
// blob store. The returned close function releases database connections.
func (c *Config) BuildEmulator(ctx context.Context, logger *slog.Logger) (*emulator.Emulator, func() error, error) {
	repo, closeRepo, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build repository: %w", err)
	}
	store, err := c.BuildBlobStore()
	if err != nil {
		_ = closeRepo()
		return nil, nil, fmt.Errorf("failed to build blob store: %w", err)
	}

	em, err := emulator.New(
		emulator.WithBlobStore(store),
		emulator.WithRepository(repo),
		emulator.WithUser(c.User),
		emulator.WithLogger(logger),
		emulator.WithInstallRoot(c.InstallDir),
	)
	if err != nil {
		_ = closeRepo()
		return nil, nil, err
	}
	return em, closeRepo, nil
}

// BuildRepository creates the configured item catalog.
func (c *Config) BuildRepository(ctx context.Context) (emulator.Repository, func() error, error) {
	db, err := c.Database()
	if err != nil {
		return nil, nil, err
	}
	noop := func() error { return nil }

	switch db.Type {
	case DatabaseMemory:
		return repomemory.New(), noop, nil
	case DatabasePostgres:
		pool, err := pgxpool.New(ctx, db.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database ping failed: %w", err)
		}
		repo := repopg.NewWithPool(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, func() error { pool.Close(); return nil }, nil
	case DatabaseSQLite:
		repo, err := reposqlite.Open(ctx, db.DSN)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", db.Type)
	}
}

// BuildBlobStore creates the configured blob store.
func (c *Config) BuildBlobStore() (emulator.BlobStore, error) {
	st, err := c.Storage()
	if err != nil {
		return nil, err
	}
	switch st.Type {
	case StorageMemory:
		return memorystorage.New(), nil
	case StorageFS:
		return fsstorage.New(fsstorage.Config{BaseDir: st.BaseDir})
	case StorageS3:
		return s3storage.New(st.S3)
	default:
		return nil, errors.New("unsupported storage backend type: " + st.Type)
	}
}
