// Package kv stores marketplace records in pebble under their derived
// addresses, encoded with the record codec.
package kv

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/frahmantamala/chatmate/internal/core/codec"
	assistantDatamodel "github.com/frahmantamala/chatmate/internal/core/datamodel/assistant"
	permissionDatamodel "github.com/frahmantamala/chatmate/internal/core/datamodel/permission"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/core/repository"
)

var ErrClosed = errors.New("kv store is closed")

type Store struct {
	db     *pebble.DB
	logger *slog.Logger

	// mu serializes write transactions so read-modify-write sequences
	// inside WithinTx observe a stable snapshot.
	mu     sync.Mutex
	closed bool
}

func Open(dir string, logger *slog.Logger) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", dir, err)
	}
	logger.Info("pebble store opened", "dir", dir)
	return &Store{db: db, logger: logger}, nil
}

// OpenInMemory opens a store backed by an in-memory filesystem.
func OpenInMemory(logger *slog.Logger) (*Store, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory pebble: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Assistants() repository.AssistantRepository {
	return &assistantRepo{r: s.db, w: s.db}
}

func (s *Store) Permissions() repository.PermissionRepository {
	return &permissionRepo{r: s.db, w: s.db}
}

func (s *Store) Ledger() repository.LedgerRepository {
	return &ledgerRepo{r: s.db, w: s.db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	batch := s.db.NewIndexedBatch()
	defer batch.Close()

	if err := fn(&txView{batch: batch}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		s.logger.Error("failed to commit batch", "error", err)
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

type writer interface {
	Set(key, value []byte, opts *pebble.WriteOptions) error
}

type txView struct {
	batch *pebble.Batch
}

func (t *txView) Assistants() repository.AssistantRepository {
	return &assistantRepo{r: t.batch, w: t.batch}
}

func (t *txView) Permissions() repository.PermissionRepository {
	return &permissionRepo{r: t.batch, w: t.batch}
}

func (t *txView) Ledger() repository.LedgerRepository {
	return &ledgerRepo{r: t.batch, w: t.batch}
}

// get copies the value out before releasing pebble's buffer.
func get(r reader, key []byte) ([]byte, error) {
	value, closer, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

const (
	prefixAssistant  = 'a'
	prefixPermission = 'p'
	prefixAccount    = 'b'
)

func key(prefix byte, address identity.ID) []byte {
	k := make([]byte, 0, 1+identity.Size)
	k = append(k, prefix)
	return append(k, address[:]...)
}

type assistantRepo struct {
	r reader
	w writer
}

func (a *assistantRepo) GetByAddress(ctx context.Context, address identity.ID) (*assistantDatamodel.Assistant, error) {
	raw, err := get(a.r, key(prefixAssistant, address))
	if err != nil {
		return nil, err
	}
	profile, err := codec.DecodeProfile(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt profile at %s: %w", address, err)
	}
	return profile, nil
}

func (a *assistantRepo) Create(ctx context.Context, profile *assistantDatamodel.Assistant) error {
	if _, err := a.GetByAddress(ctx, profile.Address); err == nil {
		return repository.ErrAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return a.put(profile)
}

func (a *assistantRepo) Update(ctx context.Context, profile *assistantDatamodel.Assistant) error {
	if _, err := a.GetByAddress(ctx, profile.Address); err != nil {
		return err
	}
	return a.put(profile)
}

func (a *assistantRepo) put(profile *assistantDatamodel.Assistant) error {
	if profile.Address != identity.AssistantAddress(profile.Owner) {
		return fmt.Errorf("profile address %s does not derive from owner %s", profile.Address, profile.Owner)
	}
	raw, err := codec.EncodeProfile(profile)
	if err != nil {
		return err
	}
	return a.w.Set(key(prefixAssistant, profile.Address), raw, pebble.Sync)
}

type permissionRepo struct {
	r reader
	w writer
}

func (p *permissionRepo) Get(ctx context.Context, assistant, visitor identity.ID) (*permissionDatamodel.Permission, error) {
	raw, err := get(p.r, key(prefixPermission, identity.PermissionAddress(assistant, visitor)))
	if err != nil {
		return nil, err
	}
	record, err := codec.DecodePermission(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt permission for %s/%s: %w", assistant, visitor, err)
	}
	return record, nil
}

func (p *permissionRepo) Upsert(ctx context.Context, record *permissionDatamodel.Permission) error {
	raw, err := codec.EncodePermission(record)
	if err != nil {
		return err
	}
	return p.w.Set(key(prefixPermission, identity.PermissionAddress(record.Assistant, record.Visitor)), raw, pebble.Sync)
}

type ledgerRepo struct {
	r reader
	w writer
}

func (l *ledgerRepo) Balance(ctx context.Context, holder identity.ID) (uint64, error) {
	raw, err := get(l.r, key(prefixAccount, identity.AccountAddress(holder)))
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("corrupt balance for %s", holder)
	}
	return binary.LittleEndian.Uint64(raw), nil
}

func (l *ledgerRepo) setBalance(holder identity.ID, balance uint64) error {
	return l.w.Set(key(prefixAccount, identity.AccountAddress(holder)), binary.LittleEndian.AppendUint64(nil, balance), pebble.Sync)
}

func (l *ledgerRepo) Credit(ctx context.Context, holder identity.ID, amount uint64) error {
	balance, err := l.Balance(ctx, holder)
	if err != nil {
		return err
	}
	if balance > ^uint64(0)-amount {
		return repository.ErrBalanceOverflow
	}
	return l.setBalance(holder, balance+amount)
}

func (l *ledgerRepo) Transfer(ctx context.Context, from, to identity.ID, amount uint64) error {
	fromBalance, err := l.Balance(ctx, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", repository.ErrInsufficientFunds, from, fromBalance, amount)
	}
	if from == to {
		return nil
	}
	toBalance, err := l.Balance(ctx, to)
	if err != nil {
		return err
	}
	if toBalance > ^uint64(0)-amount {
		return repository.ErrBalanceOverflow
	}
	if err := l.setBalance(from, fromBalance-amount); err != nil {
		return err
	}
	return l.setBalance(to, toBalance+amount)
}
