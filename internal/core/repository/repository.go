// Package repository declares the storage contracts shared by the registry,
// the permission ledger and the payment gateway.
package repository

import (
	"context"
	"errors"

	assistantDatamodel "github.com/frahmantamala/chatmate/internal/core/datamodel/assistant"
	permissionDatamodel "github.com/frahmantamala/chatmate/internal/core/datamodel/permission"
	"github.com/frahmantamala/chatmate/internal/core/identity"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyExists     = errors.New("record already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceOverflow   = errors.New("balance overflow")
)

type AssistantRepository interface {
	GetByAddress(ctx context.Context, address identity.ID) (*assistantDatamodel.Assistant, error)
	Create(ctx context.Context, a *assistantDatamodel.Assistant) error
	Update(ctx context.Context, a *assistantDatamodel.Assistant) error
}

type PermissionRepository interface {
	Get(ctx context.Context, assistant, visitor identity.ID) (*permissionDatamodel.Permission, error)
	// Upsert writes p, replacing any record stored under the same key.
	Upsert(ctx context.Context, p *permissionDatamodel.Permission) error
}

// Transferer moves currency between holders. It fails with
// ErrInsufficientFunds and leaves both balances untouched when the source
// cannot cover amount.
type Transferer interface {
	Transfer(ctx context.Context, from, to identity.ID, amount uint64) error
}

type LedgerRepository interface {
	Transferer
	Balance(ctx context.Context, holder identity.ID) (uint64, error)
	Credit(ctx context.Context, holder identity.ID, amount uint64) error
}

// Tx is the set of repositories bound to one atomic unit of work.
type Tx interface {
	Assistants() AssistantRepository
	Permissions() PermissionRepository
	Ledger() LedgerRepository
}

// Store gives non-transactional reads through its embedded Tx and runs
// mutations through WithinTx. When fn returns an error nothing it wrote is
// persisted.
type Store interface {
	Tx
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
