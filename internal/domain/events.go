package domain

// EventType identifies a committed registry state change
type EventType string

const (
	EventTypeNewAccess      EventType = "new_access"
	EventTypeTransferSingle EventType = "transfer_single"
	EventTypeFeeWithdrawal  EventType = "fee_withdrawal"
)

// RegistryEvent is the normalized event published to NATS after a registry
// operation commits. Amounts and ids are decimal strings so consumers do not
// need big-integer JSON support.
type RegistryEvent struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	Timestamp int64     `json:"timestamp"`

	ContentID       string `json:"content_id,omitempty"`
	ServiceProvider string `json:"service_provider,omitempty"`

	// NewAccess fields
	UnitValidity uint64 `json:"unit_validity,omitempty"`
	UnitFee      string `json:"unit_fee,omitempty"`
	Holder       string `json:"holder,omitempty"`
	RoyaltyRate  string `json:"royalty_rate,omitempty"`
	ContentName  string `json:"content_name,omitempty"`

	// TransferSingle fields
	Operator string `json:"operator,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Quantity string `json:"quantity,omitempty"`
	Royalty  string `json:"royalty,omitempty"`

	// FeeWithdrawal fields
	Withdrawn string `json:"withdrawn,omitempty"`
}
