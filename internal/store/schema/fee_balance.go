package schema

import (
	"time"
)

// FeeBalance represents the fee_balances table - one row per service provider
// accruing withdrawable settlement currency from mints and royalties
type FeeBalance struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ServiceProvider is the address the balance is owed to
	ServiceProvider string `gorm:"column:service_provider;not null;type:text;uniqueIndex:idx_fee_balances_provider"`
	// Withdrawable is the accrued balance (stored as string to support up to 78 digits)
	Withdrawable string `gorm:"column:withdrawable;not null;type:numeric(78,0)"`
	// CreatedAt is the timestamp when this balance was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this balance was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the FeeBalance model
func (FeeBalance) TableName() string {
	return "fee_balances"
}
