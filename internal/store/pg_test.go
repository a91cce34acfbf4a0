package store

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/feral-file/entitlement-registry/internal/domain"
	"github.com/feral-file/entitlement-registry/internal/store/schema"
)

var (
	testDB      *gorm.DB
	pgContainer *postgres.PostgresContainer
)

// TestMain sets up the test database before running tests
func TestMain(m *testing.M) {
	if os.Getenv("TEST_PG_STORE") == "" {
		// Container-backed tests are opt-in
		os.Exit(m.Run())
	}

	ctx := context.Background()

	var dsn string
	var err error

	if host := os.Getenv("TEST_DB_HOST"); host != "" {
		dsn = fmt.Sprintf("host=%s port=5432 user=postgres password=postgres dbname=test_db sslmode=disable", host)
	} else {
		pgContainer, err = postgres.Run(ctx,
			"postgres:17-alpine",
			postgres.WithDatabase("test_db"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			fmt.Printf("Failed to start PostgreSQL container: %v\n", err)
			os.Exit(1)
		}

		dsn, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Printf("Failed to get connection string: %v\n", err)
			_ = pgContainer.Terminate(ctx)
			os.Exit(1)
		}
	}

	testDB, err = gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Printf("Failed to connect to test database: %v\n", err)
		os.Exit(1)
	}

	if err := Migrate(testDB); err != nil {
		fmt.Printf("Failed to migrate test database: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if pgContainer != nil {
		_ = pgContainer.Terminate(ctx)
	}
	os.Exit(code)
}

func requirePG(t *testing.T) Store {
	t.Helper()
	if testDB == nil {
		t.Skip("set TEST_PG_STORE=1 to run PostgreSQL store tests")
	}

	// Each test starts from empty tables
	require.NoError(t, testDB.Exec("TRUNCATE content_records, holdings, fee_balances RESTART IDENTITY").Error)
	return NewPGStore(testDB)
}

func pgContentRecord(id int64) *domain.ContentRecord {
	return &domain.ContentRecord{
		ContentID:               big.NewInt(id),
		ServiceProvider:         common.HexToAddress("0xc75fbf7cd0b58e1fff9b91a2d5b0682ef0880b22"),
		UnitFee:                 new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil),
		RoyaltyRateMilliPercent: big.NewInt(10),
		UnitValidity:            5000,
		TotalSupply:             new(big.Int),
		Name:                    "content",
		URI:                     "ipfs://content",
	}
}

func TestPGStoreContentRoundTrip(t *testing.T) {
	s := requirePG(t)
	ctx := context.Background()

	_, err := s.GetContent(ctx, big.NewInt(0))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.CreateContent(ctx, pgContentRecord(0)))

	got, err := s.GetContent(ctx, big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, pgContentRecord(0).ServiceProvider, got.ServiceProvider)
	assert.Zero(t, got.UnitFee.Cmp(pgContentRecord(0).UnitFee))
	assert.Zero(t, got.TotalSupply.Sign())

	require.NoError(t, s.IncrementSupply(ctx, big.NewInt(0)))
	got, err = s.GetContent(ctx, big.NewInt(0))
	require.NoError(t, err)
	assert.Zero(t, got.TotalSupply.Cmp(big.NewInt(1)))
}

func TestPGStoreSetContentURI(t *testing.T) {
	s := requirePG(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.SetContentURI(ctx, big.NewInt(0), "ipfs://new"), domain.ErrNotFound)

	require.NoError(t, s.CreateContent(ctx, pgContentRecord(0)))
	require.NoError(t, s.SetContentURI(ctx, big.NewInt(0), "ipfs://new"))

	got, err := s.GetContent(ctx, big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, "ipfs://new", got.URI)
}

func TestPGStoreHoldings(t *testing.T) {
	s := requirePG(t)
	ctx := context.Background()
	holder := common.HexToAddress("0x0b950d128f6a33651257f95cbaf59c02b7f6019f")
	expires := time.Now().UTC().Add(5000 * time.Second).Truncate(time.Microsecond)

	got, err := s.GetHolding(ctx, holder, big.NewInt(0))
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.UpsertHolding(ctx, &domain.Holding{
		Holder: holder, ContentID: big.NewInt(0),
		Quantity: big.NewInt(1), ExpiresAt: expires,
	}))
	require.NoError(t, s.UpsertHolding(ctx, &domain.Holding{
		Holder: holder, ContentID: big.NewInt(0),
		Quantity: big.NewInt(2), ExpiresAt: expires,
	}))

	got, err = s.GetHolding(ctx, holder, big.NewInt(0))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Zero(t, got.Quantity.Cmp(big.NewInt(2)))
	assert.WithinDuration(t, expires, got.ExpiresAt, time.Millisecond)

	// only one row exists after the upsert
	var count int64
	require.NoError(t, testDB.Model(&schema.Holding{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	require.NoError(t, s.DeleteHolding(ctx, holder, big.NewInt(0)))
	got, err = s.GetHolding(ctx, holder, big.NewInt(0))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPGStoreFeeBalances(t *testing.T) {
	s := requirePG(t)
	ctx := context.Background()
	provider := common.HexToAddress("0xc75fbf7cd0b58e1fff9b91a2d5b0682ef0880b22")

	balance, err := s.GetFeeBalance(ctx, provider)
	require.NoError(t, err)
	assert.Zero(t, balance.Sign())

	require.NoError(t, s.AddFeeBalance(ctx, provider, big.NewInt(100)))
	require.NoError(t, s.AddFeeBalance(ctx, provider, big.NewInt(20)))

	prior, err := s.ZeroFeeBalance(ctx, provider)
	require.NoError(t, err)
	assert.Zero(t, prior.Cmp(big.NewInt(120)))

	balance, err = s.GetFeeBalance(ctx, provider)
	require.NoError(t, err)
	assert.Zero(t, balance.Sign())
}

func TestPGStoreAtomicallyRollsBack(t *testing.T) {
	s := requirePG(t)
	ctx := context.Background()

	err := s.Atomically(ctx, func(tx Store) error {
		if err := tx.CreateContent(ctx, pgContentRecord(0)); err != nil {
			return err
		}
		return fmt.Errorf("forced rollback")
	})
	assert.Error(t, err)

	_, err = s.GetContent(ctx, big.NewInt(0))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
