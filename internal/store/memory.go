package store

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/entitlement-registry/internal/domain"
)

// memContent mirrors a content_records row with immutable value fields so a
// staged transaction can clone tables by copying map entries
type memContent struct {
	serviceProvider         common.Address
	unitFee                 string
	royaltyRateMilliPercent string
	unitValiditySeconds     uint64
	totalSupply             string
	name                    string
	uri                     string
}

type memHolding struct {
	quantity  string
	expiresAt time.Time
}

type memTables struct {
	contents    map[string]memContent
	holdings    map[string]memHolding
	feeBalances map[string]string
}

func newMemTables() *memTables {
	return &memTables{
		contents:    make(map[string]memContent),
		holdings:    make(map[string]memHolding),
		feeBalances: make(map[string]string),
	}
}

func (t *memTables) clone() *memTables {
	c := newMemTables()
	for k, v := range t.contents {
		c.contents[k] = v
	}
	for k, v := range t.holdings {
		c.holdings[k] = v
	}
	for k, v := range t.feeBalances {
		c.feeBalances[k] = v
	}
	return c
}

// MemoryStore is an in-process Store for unit tests and dev deployments.
// Atomically stages writes on a cloned set of tables and swaps them in only
// when the closure succeeds, matching the rollback semantics of the
// PostgreSQL store.
type MemoryStore struct {
	mu     sync.RWMutex
	tables *memTables
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: newMemTables()}
}

func holdingKey(holder common.Address, contentID *big.Int) string {
	return addressKey(holder) + "/" + contentID.String()
}

// GetContent retrieves a content record by its content id
func (s *MemoryStore) GetContent(_ context.Context, contentID *big.Int) (*domain.ContentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables.getContent(contentID)
}

func (t *memTables) getContent(contentID *big.Int) (*domain.ContentRecord, error) {
	row, ok := t.contents[contentID.String()]
	if !ok {
		return nil, domain.ErrNotFound
	}

	unitFee, err := parseNumeric("unit_fee", row.unitFee)
	if err != nil {
		return nil, err
	}
	royaltyRate, err := parseNumeric("royalty_rate_milli_percent", row.royaltyRateMilliPercent)
	if err != nil {
		return nil, err
	}
	totalSupply, err := parseNumeric("total_supply", row.totalSupply)
	if err != nil {
		return nil, err
	}

	return &domain.ContentRecord{
		ContentID:               new(big.Int).Set(contentID),
		ServiceProvider:         row.serviceProvider,
		UnitFee:                 unitFee,
		RoyaltyRateMilliPercent: royaltyRate,
		UnitValidity:            row.unitValiditySeconds,
		TotalSupply:             totalSupply,
		Name:                    row.name,
		URI:                     row.uri,
	}, nil
}

// CreateContent creates a content record
func (s *MemoryStore) CreateContent(_ context.Context, record *domain.ContentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables.createContent(record)
}

func (t *memTables) createContent(record *domain.ContentRecord) error {
	key := record.ContentID.String()
	if _, ok := t.contents[key]; ok {
		return fmt.Errorf("content record %s already exists", key)
	}

	t.contents[key] = memContent{
		serviceProvider:         record.ServiceProvider,
		unitFee:                 record.UnitFee.String(),
		royaltyRateMilliPercent: record.RoyaltyRateMilliPercent.String(),
		unitValiditySeconds:     record.UnitValidity,
		totalSupply:             record.TotalSupply.String(),
		name:                    record.Name,
		uri:                     record.URI,
	}
	return nil
}

// IncrementSupply advances a content's total supply by one
func (s *MemoryStore) IncrementSupply(_ context.Context, contentID *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables.incrementSupply(contentID)
}

func (t *memTables) incrementSupply(contentID *big.Int) error {
	key := contentID.String()
	row, ok := t.contents[key]
	if !ok {
		return domain.ErrNotFound
	}

	supply, err := parseNumeric("total_supply", row.totalSupply)
	if err != nil {
		return err
	}
	row.totalSupply = supply.Add(supply, big.NewInt(1)).String()
	t.contents[key] = row
	return nil
}

// SetContentURI updates a content's metadata URI
func (s *MemoryStore) SetContentURI(_ context.Context, contentID *big.Int, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := contentID.String()
	row, ok := s.tables.contents[key]
	if !ok {
		return domain.ErrNotFound
	}
	row.uri = uri
	s.tables.contents[key] = row
	return nil
}

// GetHolding retrieves a (holder, content id) holding, or nil if none exists
func (s *MemoryStore) GetHolding(_ context.Context, holder common.Address, contentID *big.Int) (*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables.getHolding(holder, contentID)
}

func (t *memTables) getHolding(holder common.Address, contentID *big.Int) (*domain.Holding, error) {
	row, ok := t.holdings[holdingKey(holder, contentID)]
	if !ok {
		return nil, nil
	}

	quantity, err := parseNumeric("quantity", row.quantity)
	if err != nil {
		return nil, err
	}

	return &domain.Holding{
		Holder:    holder,
		ContentID: new(big.Int).Set(contentID),
		Quantity:  quantity,
		ExpiresAt: row.expiresAt,
	}, nil
}

// UpsertHolding creates or replaces a holding's quantity and expiry
func (s *MemoryStore) UpsertHolding(_ context.Context, holding *domain.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables.holdings[holdingKey(holding.Holder, holding.ContentID)] = memHolding{
		quantity:  holding.Quantity.String(),
		expiresAt: holding.ExpiresAt,
	}
	return nil
}

// DeleteHolding removes a fully disposed holding
func (s *MemoryStore) DeleteHolding(_ context.Context, holder common.Address, contentID *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tables.holdings, holdingKey(holder, contentID))
	return nil
}

// GetFeeBalance reports a provider's withdrawable balance
func (s *MemoryStore) GetFeeBalance(_ context.Context, provider common.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables.getFeeBalance(provider)
}

func (t *memTables) getFeeBalance(provider common.Address) (*big.Int, error) {
	row, ok := t.feeBalances[addressKey(provider)]
	if !ok {
		return new(big.Int), nil
	}
	return parseNumeric("withdrawable", row)
}

// AddFeeBalance credits amount to a provider's withdrawable balance
func (s *MemoryStore) AddFeeBalance(_ context.Context, provider common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.tables.getFeeBalance(provider)
	if err != nil {
		return err
	}
	s.tables.feeBalances[addressKey(provider)] = balance.Add(balance, amount).String()
	return nil
}

// ZeroFeeBalance zeroes a provider's balance and returns the prior value
func (s *MemoryStore) ZeroFeeBalance(_ context.Context, provider common.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, err := s.tables.getFeeBalance(provider)
	if err != nil {
		return nil, err
	}
	s.tables.feeBalances[addressKey(provider)] = "0"
	return prior, nil
}

// Atomically stages fn's writes on a cloned copy of the tables and swaps the
// copy in only if fn succeeds
func (s *MemoryStore) Atomically(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &MemoryStore{tables: s.tables.clone()}
	if err := fn(staged); err != nil {
		return err
	}

	s.tables = staged.tables
	return nil
}
