package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"

	"github.com/xraph/paystream/store"
	"github.com/xraph/paystream/store/postgres"
	"github.com/xraph/paystream/store/storetest"
)

// TestConformance needs a disposable database; every subtest truncates it.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("PAYSTREAM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PAYSTREAM_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()

		drv := pgdriver.New()
		require.NoError(t, drv.Open(ctx, dsn))
		db, err := grove.Open(drv)
		require.NoError(t, err)

		s := postgres.New(db)
		t.Cleanup(func() { _ = s.Close() })

		require.NoError(t, s.Migrate(ctx))
		_, err = drv.Exec(ctx, "TRUNCATE paystream_streams")
		require.NoError(t, err)
		return s
	})
}
