package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-workshop/pkg/workshop/emulator/repo/postgres"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator/repo/repotest"
)

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("WORKSHOP_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("WORKSHOP_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := postgres.NewWithPool(pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	_, err = pool.Exec(ctx, "TRUNCATE workshop_items RESTART IDENTITY")
	require.NoError(t, err)

	repotest.Run(t, repo)
}
