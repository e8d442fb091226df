package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	assistantDatamodel "github.com/frahmantamala/chatmate/internal/core/datamodel/assistant"
	ledgerDatamodel "github.com/frahmantamala/chatmate/internal/core/datamodel/ledger"
	permissionDatamodel "github.com/frahmantamala/chatmate/internal/core/datamodel/permission"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/core/repository"
)

// Store keeps records in SQL tables through gorm. Amounts are stored as
// BIGINT, so values above math.MaxInt64 are rejected by the database.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Assistants() repository.AssistantRepository {
	return &AssistantRepository{db: s.db}
}

func (s *Store) Permissions() repository.PermissionRepository {
	return &PermissionRepository{db: s.db}
}

func (s *Store) Ledger() repository.LedgerRepository {
	return &LedgerRepository{db: s.db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txView{db: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates the tables for tests and local tooling. Deployments use
// the goose migrations.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&assistantDatamodel.Assistant{}, &permissionDatamodel.Permission{}, &ledgerDatamodel.Account{})
}

type txView struct {
	db *gorm.DB
}

func (t *txView) Assistants() repository.AssistantRepository {
	return &AssistantRepository{db: t.db, lock: true}
}

func (t *txView) Permissions() repository.PermissionRepository {
	return &PermissionRepository{db: t.db, lock: true}
}

func (t *txView) Ledger() repository.LedgerRepository {
	return &LedgerRepository{db: t.db, lock: true}
}

func forUpdate(db *gorm.DB, lock bool) *gorm.DB {
	if lock {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrAlreadyExists
	}
	return err
}

type AssistantRepository struct {
	db   *gorm.DB
	lock bool
}

func (r *AssistantRepository) GetByAddress(ctx context.Context, address identity.ID) (*assistantDatamodel.Assistant, error) {
	var a assistantDatamodel.Assistant
	err := forUpdate(r.db.WithContext(ctx), r.lock).Where("address = ?", address).First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *AssistantRepository) Create(ctx context.Context, a *assistantDatamodel.Assistant) error {
	if _, err := r.GetByAddress(ctx, a.Address); err == nil {
		return repository.ErrAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *AssistantRepository) Update(ctx context.Context, a *assistantDatamodel.Assistant) error {
	updates := map[string]interface{}{
		"access_fee":           a.AccessFee,
		"total_earnings":       a.TotalEarnings,
		"is_access_restricted": a.IsAccessRestricted,
		"updated_at":           time.Now(),
	}
	result := r.db.WithContext(ctx).Model(&assistantDatamodel.Assistant{}).Where("address = ?", a.Address).Updates(updates)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type PermissionRepository struct {
	db   *gorm.DB
	lock bool
}

func (r *PermissionRepository) Get(ctx context.Context, assistant, visitor identity.ID) (*permissionDatamodel.Permission, error) {
	var p permissionDatamodel.Permission
	err := forUpdate(r.db.WithContext(ctx), r.lock).
		Where("assistant = ? AND visitor = ?", assistant, visitor).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PermissionRepository) Upsert(ctx context.Context, p *permissionDatamodel.Permission) error {
	if !p.PermissionType.Valid() {
		return fmt.Errorf("invalid permission type %d", p.PermissionType)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "assistant"}, {Name: "visitor"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"permission_type", "granted_at", "expires_at", "is_active", "paid_amount", "updated_at",
		}),
	}).Create(p).Error
}

type LedgerRepository struct {
	db   *gorm.DB
	lock bool
}

func (r *LedgerRepository) Balance(ctx context.Context, holder identity.ID) (uint64, error) {
	var acc ledgerDatamodel.Account
	err := forUpdate(r.db.WithContext(ctx), r.lock).Where("holder = ?", holder).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

func (r *LedgerRepository) setBalance(ctx context.Context, holder identity.ID, balance uint64) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "holder"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
	}).Create(&ledgerDatamodel.Account{Holder: holder, Balance: balance}).Error
}

func (r *LedgerRepository) Credit(ctx context.Context, holder identity.ID, amount uint64) error {
	balance, err := r.Balance(ctx, holder)
	if err != nil {
		return err
	}
	if balance > ^uint64(0)-amount {
		return repository.ErrBalanceOverflow
	}
	return r.setBalance(ctx, holder, balance+amount)
}

func (r *LedgerRepository) Transfer(ctx context.Context, from, to identity.ID, amount uint64) error {
	fromBalance, err := r.Balance(ctx, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", repository.ErrInsufficientFunds, from, fromBalance, amount)
	}
	if from == to {
		return nil
	}
	toBalance, err := r.Balance(ctx, to)
	if err != nil {
		return err
	}
	if toBalance > ^uint64(0)-amount {
		return repository.ErrBalanceOverflow
	}
	if err := r.setBalance(ctx, from, fromBalance-amount); err != nil {
		return err
	}
	return r.setBalance(ctx, to, toBalance+amount)
}
