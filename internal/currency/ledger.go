package currency

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientFunds is returned when a transfer exceeds the sender's balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientAllowance is returned when TransferFrom exceeds the owner's approval
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Ledger is an in-process ERC20-style balance and allowance table implementing
// Settlement on behalf of a custodial registry account. It backs tests and dev
// deployments; a production deployment points Settlement at a real currency
// service instead.
type Ledger struct {
	mu         sync.Mutex
	custodian  common.Address
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// NewLedger creates an empty ledger whose Transfer debits the custodian account
func NewLedger(custodian common.Address) *Ledger {
	return &Ledger{
		custodian:  custodian,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint credits amount to account. Test and bootstrap helper, not part of the
// Settlement boundary.
func (l *Ledger) Mint(account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(account, amount)
}

// Approve lets spender pull up to amount from owner via TransferFrom.
// Overwrites any prior approval, ERC20-style.
func (l *Ledger) Approve(owner common.Address, spender common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	approvals, ok := l.allowances[owner]
	if !ok {
		approvals = make(map[common.Address]*big.Int)
		l.allowances[owner] = approvals
	}
	approvals[spender] = new(big.Int).Set(amount)
}

// Allowance reports the remaining approval from owner to spender
func (l *Ledger) Allowance(owner common.Address, spender common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if approvals, ok := l.allowances[owner]; ok {
		if a, ok := approvals[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

// TransferFrom moves amount from owner to recipient, consuming the custodian's
// allowance
func (l *Ledger) TransferFrom(_ context.Context, owner common.Address, recipient common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.Sign() == 0 {
		return nil
	}

	approvals := l.allowances[owner]
	allowance, ok := approvals[l.custodian]
	if !ok || allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}

	if err := l.debit(owner, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	l.credit(recipient, amount)
	return nil
}

// Transfer moves amount from the custodian's balance to recipient
func (l *Ledger) Transfer(_ context.Context, recipient common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.Sign() == 0 {
		return nil
	}

	if err := l.debit(l.custodian, amount); err != nil {
		return err
	}
	l.credit(recipient, amount)
	return nil
}

// BalanceOf reports the balance of account
func (l *Ledger) BalanceOf(_ context.Context, account common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (l *Ledger) credit(account common.Address, amount *big.Int) {
	b, ok := l.balances[account]
	if !ok {
		b = new(big.Int)
		l.balances[account] = b
	}
	b.Add(b, amount)
}

func (l *Ledger) debit(account common.Address, amount *big.Int) error {
	b, ok := l.balances[account]
	if !ok || b.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	b.Sub(b, amount)
	return nil
}
