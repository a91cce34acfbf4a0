package schema

import (
	"time"
)

// Holding represents the holdings table - one row per (holder, content id)
// pair with a quantity sharing a single expiry timestamp
type Holding struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Holder is the address owning the entitlement
	Holder string `gorm:"column:holder;not null;type:text;uniqueIndex:idx_holdings_holder_content,priority:1"`
	// ContentID is the content the entitlement grants access to
	ContentID string `gorm:"column:content_id;not null;type:numeric(78,0);uniqueIndex:idx_holdings_holder_content,priority:2"`
	// Quantity is the number of units held (stored as string to support up to 78 digits)
	Quantity string `gorm:"column:quantity;not null;type:numeric(78,0)"`
	// ExpiresAt is the absolute time the entire holding's validity reaches zero
	ExpiresAt time.Time `gorm:"column:expires_at;not null;type:timestamptz"`
	// CreatedAt is the timestamp when this holding was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this holding was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Holding model
func (Holding) TableName() string {
	return "holdings"
}
