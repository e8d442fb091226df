package kv_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	assistantDatamodel "github.com/frahmantamala/chatmate/internal/core/datamodel/assistant"
	permissionDatamodel "github.com/frahmantamala/chatmate/internal/core/datamodel/permission"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/core/repository"
	"github.com/frahmantamala/chatmate/internal/storage/kv"
	"github.com/frahmantamala/chatmate/pkg/logger"
)

func TestKV(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "KV Store Suite")
}

var _ = Describe("Pebble store", func() {
	var (
		ctx   context.Context
		store *kv.Store
		alice identity.ID
		bob   identity.ID
	)

	BeforeEach(func() {
		ctx = context.Background()
		alice = identity.Derive("alice")
		bob = identity.Derive("bob")

		var err error
		store, err = kv.OpenInMemory(logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
	})

	credit := func(holder identity.ID, amount uint64) {
		Expect(store.WithinTx(ctx, func(tx repository.Tx) error {
			return tx.Ledger().Credit(ctx, holder, amount)
		})).To(Succeed())
	}

	profileOf := func(owner identity.ID) *assistantDatamodel.Assistant {
		return &assistantDatamodel.Assistant{
			Address:   identity.AssistantAddress(owner),
			Owner:     owner,
			Username:  "helper",
			AccessFee: 50,
		}
	}

	Describe("assistants", func() {
		It("should create and read a profile", func() {
			Expect(store.Assistants().Create(ctx, profileOf(alice))).To(Succeed())

			got, err := store.Assistants().GetByAddress(ctx, identity.AssistantAddress(alice))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Owner).To(Equal(alice))
			Expect(got.AccessFee).To(Equal(uint64(50)))
		})

		It("should refuse a second profile for the same owner", func() {
			Expect(store.Assistants().Create(ctx, profileOf(alice))).To(Succeed())
			Expect(store.Assistants().Create(ctx, profileOf(alice))).To(MatchError(repository.ErrAlreadyExists))
		})

		It("should not update a missing profile", func() {
			Expect(store.Assistants().Update(ctx, profileOf(bob))).To(MatchError(repository.ErrNotFound))
		})

		It("should refuse an address that does not derive from the owner", func() {
			profile := profileOf(alice)
			profile.Address = identity.AssistantAddress(bob)
			Expect(store.Assistants().Create(ctx, profile)).NotTo(Succeed())
		})
	})

	Describe("permissions", func() {
		It("should overwrite the record stored under the same pair", func() {
			assistant := identity.AssistantAddress(alice)
			first := &permissionDatamodel.Permission{Assistant: assistant, Visitor: bob, IsActive: true, PaidAmount: 10}
			second := &permissionDatamodel.Permission{Assistant: assistant, Visitor: bob, PermissionType: permissionDatamodel.TypeSchedule}
			Expect(store.Permissions().Upsert(ctx, first)).To(Succeed())
			Expect(store.Permissions().Upsert(ctx, second)).To(Succeed())

			got, err := store.Permissions().Get(ctx, assistant, bob)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsActive).To(BeFalse())
			Expect(got.PermissionType).To(Equal(permissionDatamodel.TypeSchedule))
			Expect(got.PaidAmount).To(BeZero())
		})

		It("should report a missing record", func() {
			_, err := store.Permissions().Get(ctx, identity.AssistantAddress(alice), bob)
			Expect(err).To(MatchError(repository.ErrNotFound))
		})
	})

	Describe("ledger", func() {
		It("should start every holder at zero", func() {
			Expect(store.Ledger().Balance(ctx, alice)).To(BeZero())
		})

		It("should move funds between holders", func() {
			credit(alice, 100)
			Expect(store.WithinTx(ctx, func(tx repository.Tx) error {
				return tx.Ledger().Transfer(ctx, alice, bob, 30)
			})).To(Succeed())

			Expect(store.Ledger().Balance(ctx, alice)).To(Equal(uint64(70)))
			Expect(store.Ledger().Balance(ctx, bob)).To(Equal(uint64(30)))
		})

		It("should refuse to overdraw", func() {
			credit(alice, 10)
			err := store.WithinTx(ctx, func(tx repository.Tx) error {
				return tx.Ledger().Transfer(ctx, alice, bob, 11)
			})
			Expect(err).To(MatchError(repository.ErrInsufficientFunds))
			Expect(store.Ledger().Balance(ctx, alice)).To(Equal(uint64(10)))
		})

		It("should leave a self transfer unchanged", func() {
			credit(alice, 10)
			Expect(store.Ledger().Transfer(ctx, alice, alice, 10)).To(Succeed())
			Expect(store.Ledger().Balance(ctx, alice)).To(Equal(uint64(10)))
		})

		It("should refuse to overflow a balance", func() {
			credit(bob, math.MaxUint64)
			credit(alice, 1)
			err := store.WithinTx(ctx, func(tx repository.Tx) error {
				return tx.Ledger().Transfer(ctx, alice, bob, 1)
			})
			Expect(err).To(MatchError(repository.ErrBalanceOverflow))
			Expect(store.Ledger().Balance(ctx, alice)).To(Equal(uint64(1)))
		})
	})

	Describe("WithinTx", func() {
		It("should discard every write when the callback fails", func() {
			credit(alice, 100)
			boom := fmt.Errorf("boom")

			err := store.WithinTx(ctx, func(tx repository.Tx) error {
				Expect(tx.Ledger().Transfer(ctx, alice, bob, 40)).To(Succeed())
				Expect(tx.Assistants().Create(ctx, profileOf(alice))).To(Succeed())
				return boom
			})
			Expect(err).To(MatchError(boom))

			Expect(store.Ledger().Balance(ctx, alice)).To(Equal(uint64(100)))
			Expect(store.Ledger().Balance(ctx, bob)).To(BeZero())
			_, err = store.Assistants().GetByAddress(ctx, identity.AssistantAddress(alice))
			Expect(err).To(MatchError(repository.ErrNotFound))
		})

		It("should let a transaction read its own writes", func() {
			Expect(store.WithinTx(ctx, func(tx repository.Tx) error {
				if err := tx.Ledger().Credit(ctx, alice, 5); err != nil {
					return err
				}
				balance, err := tx.Ledger().Balance(ctx, alice)
				Expect(balance).To(Equal(uint64(5)))
				return err
			})).To(Succeed())
		})

		It("should not commit when the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			err := store.WithinTx(cancelled, func(tx repository.Tx) error {
				return tx.Ledger().Credit(ctx, alice, 5)
			})
			Expect(err).To(MatchError(context.Canceled))
			Expect(store.Ledger().Balance(ctx, alice)).To(BeZero())
		})

		It("should fail once the store is closed", func() {
			Expect(store.Close()).To(Succeed())
			Expect(store.Ping(ctx)).To(MatchError(kv.ErrClosed))
			Expect(store.WithinTx(ctx, func(tx repository.Tx) error { return nil })).To(MatchError(kv.ErrClosed))
		})
	})
})
