package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/entitlement-registry/internal/domain"
	"github.com/feral-file/entitlement-registry/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the registry tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.ContentRecord{},
		&schema.Holding{},
		&schema.FeeBalance{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults: 20 open, 5 idle,
// 5m lifetime, 10m idle time.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// addressKey normalizes an address for storage and lookup
func addressKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// parseNumeric parses a numeric(78,0) column value back into a big.Int
func parseNumeric(column, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt numeric value %q in column %s", s, column)
	}
	return v, nil
}

func contentFromSchema(row *schema.ContentRecord) (*domain.ContentRecord, error) {
	contentID, err := parseNumeric("content_id", row.ContentID)
	if err != nil {
		return nil, err
	}
	unitFee, err := parseNumeric("unit_fee", row.UnitFee)
	if err != nil {
		return nil, err
	}
	royaltyRate, err := parseNumeric("royalty_rate_milli_percent", row.RoyaltyRateMilliPercent)
	if err != nil {
		return nil, err
	}
	totalSupply, err := parseNumeric("total_supply", row.TotalSupply)
	if err != nil {
		return nil, err
	}

	return &domain.ContentRecord{
		ContentID:               contentID,
		ServiceProvider:         common.HexToAddress(row.ServiceProvider),
		UnitFee:                 unitFee,
		RoyaltyRateMilliPercent: royaltyRate,
		UnitValidity:            row.UnitValiditySeconds,
		TotalSupply:             totalSupply,
		Name:                    row.Name,
		URI:                     row.URI,
	}, nil
}

// GetContent retrieves a content record by its content id
func (s *pgStore) GetContent(ctx context.Context, contentID *big.Int) (*domain.ContentRecord, error) {
	var row schema.ContentRecord
	err := s.db.WithContext(ctx).
		Where("content_id = ?", contentID.String()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get content record: %w", err)
	}

	return contentFromSchema(&row)
}

// CreateContent creates a content record
func (s *pgStore) CreateContent(ctx context.Context, record *domain.ContentRecord) error {
	row := schema.ContentRecord{
		ContentID:               record.ContentID.String(),
		ServiceProvider:         addressKey(record.ServiceProvider),
		UnitFee:                 record.UnitFee.String(),
		RoyaltyRateMilliPercent: record.RoyaltyRateMilliPercent.String(),
		UnitValiditySeconds:     record.UnitValidity,
		TotalSupply:             record.TotalSupply.String(),
		Name:                    record.Name,
		URI:                     record.URI,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create content record: %w", err)
	}
	return nil
}

// IncrementSupply advances a content's total supply by one
func (s *pgStore) IncrementSupply(ctx context.Context, contentID *big.Int) error {
	res := s.db.WithContext(ctx).
		Model(&schema.ContentRecord{}).
		Where("content_id = ?", contentID.String()).
		Updates(map[string]interface{}{
			"total_supply": gorm.Expr("total_supply + 1"),
			"updated_at":   gorm.Expr("now()"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to increment supply: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetContentURI updates a content's metadata URI
func (s *pgStore) SetContentURI(ctx context.Context, contentID *big.Int, uri string) error {
	res := s.db.WithContext(ctx).
		Model(&schema.ContentRecord{}).
		Where("content_id = ?", contentID.String()).
		Updates(map[string]interface{}{
			"uri":        uri,
			"updated_at": gorm.Expr("now()"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to set content uri: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetHolding retrieves a (holder, content id) holding, or nil if none exists
func (s *pgStore) GetHolding(ctx context.Context, holder common.Address, contentID *big.Int) (*domain.Holding, error) {
	var row schema.Holding
	err := s.db.WithContext(ctx).
		Where("holder = ? AND content_id = ?", addressKey(holder), contentID.String()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}

	quantity, err := parseNumeric("quantity", row.Quantity)
	if err != nil {
		return nil, err
	}

	return &domain.Holding{
		Holder:    common.HexToAddress(row.Holder),
		ContentID: new(big.Int).Set(contentID),
		Quantity:  quantity,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

// UpsertHolding creates or replaces a holding's quantity and expiry
func (s *pgStore) UpsertHolding(ctx context.Context, holding *domain.Holding) error {
	row := schema.Holding{
		Holder:    addressKey(holding.Holder),
		ContentID: holding.ContentID.String(),
		Quantity:  holding.Quantity.String(),
		ExpiresAt: holding.ExpiresAt,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "holder"}, {Name: "content_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   row.Quantity,
				"expires_at": row.ExpiresAt,
				"updated_at": gorm.Expr("now()"),
			}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	return nil
}

// DeleteHolding removes a fully disposed holding
func (s *pgStore) DeleteHolding(ctx context.Context, holder common.Address, contentID *big.Int) error {
	err := s.db.WithContext(ctx).
		Where("holder = ? AND content_id = ?", addressKey(holder), contentID.String()).
		Delete(&schema.Holding{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return nil
}

// GetFeeBalance reports a provider's withdrawable balance
func (s *pgStore) GetFeeBalance(ctx context.Context, provider common.Address) (*big.Int, error) {
	var row schema.FeeBalance
	err := s.db.WithContext(ctx).
		Where("service_provider = ?", addressKey(provider)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("failed to get fee balance: %w", err)
	}

	return parseNumeric("withdrawable", row.Withdrawable)
}

// AddFeeBalance credits amount to a provider's withdrawable balance
func (s *pgStore) AddFeeBalance(ctx context.Context, provider common.Address, amount *big.Int) error {
	row := schema.FeeBalance{
		ServiceProvider: addressKey(provider),
		Withdrawable:    amount.String(),
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "service_provider"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"withdrawable": gorm.Expr("fee_balances.withdrawable + EXCLUDED.withdrawable"),
				"updated_at":   gorm.Expr("now()"),
			}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to credit fee balance: %w", err)
	}
	return nil
}

// ZeroFeeBalance zeroes a provider's balance and returns the prior value
func (s *pgStore) ZeroFeeBalance(ctx context.Context, provider common.Address) (*big.Int, error) {
	var row schema.FeeBalance
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("service_provider = ?", addressKey(provider)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("failed to get fee balance: %w", err)
	}

	prior, err := parseNumeric("withdrawable", row.Withdrawable)
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).
		Model(&schema.FeeBalance{}).
		Where("service_provider = ?", addressKey(provider)).
		Updates(map[string]interface{}{
			"withdrawable": "0",
			"updated_at":   gorm.Expr("now()"),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to zero fee balance: %w", res.Error)
	}

	return prior, nil
}

// Atomically runs fn inside a database transaction
func (s *pgStore) Atomically(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}
