package schema

import (
	"time"
)

// ContentRecord represents the content_records table - one row per content id,
// created lazily at first mint and read-mostly thereafter
type ContentRecord struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ContentID is the u256 content identifier (stored as numeric(78,0) to cover 256 bits)
	ContentID string `gorm:"column:content_id;not null;uniqueIndex:idx_content_records_content_id;type:numeric(78,0)"`
	// ServiceProvider is the address whose signatures authorize mints; immutable after first mint
	ServiceProvider string `gorm:"column:service_provider;not null;type:text"`
	// UnitFee is the settlement-currency cost per minted unit
	UnitFee string `gorm:"column:unit_fee;not null;type:numeric(78,0)"`
	// RoyaltyRateMilliPercent is the transfer royalty in parts-per-thousand of UnitFee
	RoyaltyRateMilliPercent string `gorm:"column:royalty_rate_milli_percent;not null;type:numeric(78,0)"`
	// UnitValiditySeconds is the validity window granted per minted unit
	UnitValiditySeconds uint64 `gorm:"column:unit_validity_seconds;not null"`
	// TotalSupply is the monotonically increasing count of units ever minted
	TotalSupply string `gorm:"column:total_supply;not null;type:numeric(78,0)"`
	// Name is the display name fixed at first mint
	Name string `gorm:"column:name;not null;type:text"`
	// URI is the display metadata URI, mutable by the service provider only
	URI string `gorm:"column:uri;not null;default:'';type:text"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ContentRecord model
func (ContentRecord) TableName() string {
	return "content_records"
}
