//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/order-pricer/internal/batch"
	"github.com/xenking/order-pricer/internal/domain/order"
	"github.com/xenking/order-pricer/internal/domain/pricing"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "pricer",
				"POSTGRES_PASSWORD": "pricer",
				"POSTGRES_DB":       "pricer",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err)

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://pricer:pricer@%s:%s/pricer?sslmode=disable", host, port.Port())
}

func TestLedgerRepository_Postgres(t *testing.T) {
	ctx := context.Background()
	pool, err := Connect(ctx, startPostgres(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	// Migrations are idempotent.
	require.NoError(t, Migrate(ctx, pool))

	repo := NewLedgerRepository(pool, uuid.New())

	require.NoError(t, repo.Record(ctx, batch.Outcome{
		Seq:    1,
		Record: order.Record{OrderID: "A-1", ProductID: "CT-RC-001", Quantity: 3, UnitPrice: d("10.00")},
		OK:     true,
		Result: pricing.Result{
			Subtotal:        d("30.00"),
			DiscountRate:    d("0.20"),
			DiscountedTotal: d("24.00"),
			Tax:             d("1.92"),
			Shipping:        d("10.49"),
			FinalTotal:      d("36.41"),
		},
	}))
	require.NoError(t, repo.Record(ctx, batch.Outcome{
		Seq:    2,
		Record: order.Record{OrderID: "B-2"},
		Reason: order.ReasonInvalidQuantity,
	}))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"processed": 1, "skipped": 1}, counts)

	var final string
	err = pool.QueryRow(ctx,
		`SELECT final_total::text FROM priced_orders WHERE run_id = $1 AND seq = 1`, repo.RunID(),
	).Scan(&final)
	require.NoError(t, err)
	assert.Equal(t, "36.41", final)

	// The same run and sequence cannot be recorded twice.
	err = repo.Record(ctx, batch.Outcome{Seq: 1, Record: order.Record{OrderID: "A-1"}})
	require.Error(t, err)
}
