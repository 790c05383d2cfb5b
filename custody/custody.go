// Package custody moves payment tokens into and out of the ledger.
package custody

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xraph/streamfee/types"
)

var (
	ErrInsufficientFunds = errors.New("custody: insufficient funds")
	ErrInvalidAmount     = errors.New("custody: invalid amount")
)

// Custodian transfers tokens between external accounts and the ledger's
// custody account.
type Custodian interface {
	// Pull moves amount from the external account into custody.
	Pull(ctx context.Context, from string, amount types.Amount) error
	// Push moves amount out of custody to the external account.
	Push(ctx context.Context, to string, amount types.Amount) error
}

// Vault is an in-memory Custodian holding external account balances and
// the custody balance.
type Vault struct {
	mu       sync.Mutex
	accounts map[string]types.Amount
	held     types.Amount
}

func NewVault() *Vault {
	return &Vault{
		accounts: make(map[string]types.Amount),
		held:     types.Zero(),
	}
}

// Fund credits an external account, e.g. to seed a test wallet.
func (v *Vault) Fund(account string, amount types.Amount) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.accounts[account] = v.balance(account).Add(amount)
}

// Balance returns the external balance of account.
func (v *Vault) Balance(account string) types.Amount {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.balance(account)
}

// Held returns the total currently in custody.
func (v *Vault) Held() types.Amount {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.held
}

func (v *Vault) Pull(ctx context.Context, from string, amount types.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := check(amount); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	bal := v.balance(from)
	if bal.LT(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from, bal, amount)
	}
	v.accounts[from] = bal.Sub(amount)
	v.held = v.held.Add(amount)
	return nil
}

func (v *Vault) Push(ctx context.Context, to string, amount types.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := check(amount); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.held.LT(amount) {
		return fmt.Errorf("%w: custody holds %s, needs %s", ErrInsufficientFunds, v.held, amount)
	}
	v.held = v.held.Sub(amount)
	v.accounts[to] = v.balance(to).Add(amount)
	return nil
}

func (v *Vault) balance(account string) types.Amount {
	if bal, ok := v.accounts[account]; ok {
		return bal
	}
	return types.Zero()
}

func check(amount types.Amount) error {
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, types.OrZero(amount))
	}
	return nil
}
