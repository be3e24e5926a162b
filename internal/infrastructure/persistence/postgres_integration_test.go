package persistence

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/domain/order"
	"github.com/farmstore/backend/internal/infrastructure/config"
	"github.com/farmstore/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// setupPostgres starts a disposable PostgreSQL container, applies the versioned
// migrations and seeds the built-in catalog.
func setupPostgres(t *testing.T) *Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("farmstore_test"),
		tcpostgres.WithUsername("farm"),
		tcpostgres.WithPassword("farm"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	st, err := m.Run("up", nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, st.Version)
	require.NoError(t, m.Close())

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	db, err := NewDatabase(&config.DatabaseConfig{
		Driver:          "postgres",
		Host:            host,
		Port:            portNum,
		User:            "farm",
		Password:        "farm",
		DBName:          "farmstore_test",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5,
		ConnMaxIdleTime: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	seeded, err := db.SeedProducts(ctx)
	require.NoError(t, err)
	require.Equal(t, len(catalog.BuiltinCatalog()), seeded)
	return db
}

func TestPostgres_TwoPhaseWriteAndCompensation(t *testing.T) {
	db := setupPostgres(t)
	repo := NewGormOrderRepository(db.DB)
	products := NewGormProductRepository(db.DB)
	ctx := context.Background()
	builtin := catalog.BuiltinCatalog()
	piments, poulet := builtin[3], builtin[8]

	committed := testOrder(t, time.Now(), line(piments, "2.5"))
	createCommitted(t, repo, committed)

	got, err := repo.FindByID(ctx, committed.ID)
	require.NoError(t, err)
	assert.True(t, got.Lines[0].Quantity.Equal(decimal.RequireFromString("2.5")))

	p, err := products.FindByID(ctx, piments.ID)
	require.NoError(t, err)
	assert.True(t, p.AvailableQuantity.Equal(decimal.NewFromInt(10)), p.AvailableQuantity.String())

	rejected := testOrder(t, time.Now(), line(poulet, "11"))
	require.NoError(t, repo.CreateOrder(ctx, rejected))
	err = repo.CreateLines(ctx, rejected.ID, rejected.Lines)
	assert.ErrorIs(t, err, order.ErrInsufficientStock)

	require.NoError(t, repo.DeleteOrder(ctx, rejected.ID))
	exists, err := repo.Exists(ctx, rejected.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.DeleteOrder(ctx, committed.ID))
	p, err = products.FindByID(ctx, piments.ID)
	require.NoError(t, err)
	assert.True(t, p.AvailableQuantity.Equal(decimal.RequireFromString("12.5")), p.AvailableQuantity.String())
}

func TestPostgres_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	db := setupPostgres(t)
	repo := NewGormOrderRepository(db.DB)
	products := NewGormProductRepository(db.DB)
	ctx := context.Background()
	poulet := catalog.BuiltinCatalog()[8]

	const buyers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := testOrder(t, time.Now(), line(poulet, "3"))
			if err := repo.CreateOrder(ctx, o); err != nil {
				return
			}
			if err := repo.CreateLines(ctx, o.ID, o.Lines); err != nil {
				_ = repo.DeleteOrder(ctx, o.ID)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	p, err := products.FindByID(ctx, poulet.ID)
	require.NoError(t, err)
	assert.True(t, p.AvailableQuantity.Equal(decimal.NewFromInt(1)), p.AvailableQuantity.String())

	recent, err := repo.FindRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}
