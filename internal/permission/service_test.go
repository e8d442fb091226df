package permission_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/chatmate/internal"
	"github.com/frahmantamala/chatmate/internal/assistant"
	"github.com/frahmantamala/chatmate/internal/core/clock"
	"github.com/frahmantamala/chatmate/internal/core/events"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/core/repository"
	"github.com/frahmantamala/chatmate/internal/permission"
	"github.com/frahmantamala/chatmate/internal/storage/kv"
	"github.com/frahmantamala/chatmate/pkg/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

func (p *recordingPublisher) Last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		store     repository.Store
		clk       *clock.Manual
		publisher *recordingPublisher
		service   *permission.Service
		owner     identity.ID
		visitor   identity.ID
		address   identity.ID
	)

	BeforeEach(func() {
		ctx = context.Background()
		kvStore, err := kv.OpenInMemory(logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(kvStore.Close)
		store = kvStore

		clk = clock.NewManual(1_000)
		publisher = &recordingPublisher{}
		service = permission.NewService(store, clk, publisher, logger.Discard())

		owner = identity.Derive("owner")
		visitor = identity.Derive("visitor")
		_, err = assistant.NewService(store, nil, logger.Discard()).CreateProfile(ctx, owner, "helper", 10)
		Expect(err).NotTo(HaveOccurred())
		address = identity.AssistantAddress(owner)
	})

	Describe("Grant", func() {
		It("should create an active permission stamped with the current time", func() {
			p, err := service.Grant(ctx, owner, address, visitor, permission.TypeSchedule, at(2_000))
			Expect(err).NotTo(HaveOccurred())
			Expect(p.GrantedAt).To(Equal(int64(1_000)))
			Expect(p.IsActive).To(BeTrue())
			Expect(p.PaidAmount).To(BeZero())

			stored, err := service.Get(ctx, address, visitor)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(Equal(p))
		})

		It("should announce the grant", func() {
			_, err := service.Grant(ctx, owner, address, visitor, permission.TypeFullAccess, at(2_000))
			Expect(err).NotTo(HaveOccurred())

			granted, ok := publisher.Last().(*events.AccessGrantedEvent)
			Expect(ok).To(BeTrue())
			Expect(granted.Visitor).To(Equal(visitor))
			Expect(granted.PermissionType).To(Equal("full_access"))
			Expect(granted.ExpiresAt).To(HaveValue(Equal(int64(2_000))))
		})

		It("should refuse anyone but the owner", func() {
			_, err := service.Grant(ctx, visitor, address, visitor, permission.TypeChat, nil)
			Expect(err).To(MatchError(errors.ErrAccessViolation))
			Expect(publisher.Types()).To(BeEmpty())

			_, err = service.Get(ctx, address, visitor)
			Expect(err).To(MatchError(errors.ErrPermissionNotFound))
		})

		It("should refuse an unknown assistant", func() {
			_, err := service.Grant(ctx, visitor, identity.AssistantAddress(visitor), owner, permission.TypeChat, nil)
			Expect(err).To(MatchError(errors.ErrAssistantNotFound))
		})

		It("should refuse an unknown permission type", func() {
			_, err := service.Grant(ctx, owner, address, visitor, permission.Type(9), nil)
			Expect(errors.HasCode(err, errors.ErrCodeValidationFailed)).To(BeTrue())
		})

		It("should keep the amount paid by an earlier purchase", func() {
			Expect(store.WithinTx(ctx, func(tx repository.Tx) error {
				p, _, err := permission.Find(ctx, tx.Permissions(), address, visitor)
				if err != nil {
					return err
				}
				p.Purchase(10, 500)
				return permission.Put(ctx, tx.Permissions(), p)
			})).To(Succeed())

			p, err := service.Grant(ctx, owner, address, visitor, permission.TypeSchedule, at(1_500))
			Expect(err).NotTo(HaveOccurred())
			Expect(p.PaidAmount).To(Equal(uint64(10)))
			Expect(p.ExpiresAt).To(HaveValue(Equal(int64(1_500))))
		})
	})

	Describe("Revoke", func() {
		It("should deactivate the permission and announce it", func() {
			_, err := service.Grant(ctx, owner, address, visitor, permission.TypeChat, nil)
			Expect(err).NotTo(HaveOccurred())

			p, err := service.Revoke(ctx, owner, address, visitor)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.IsActive).To(BeFalse())
			Expect(publisher.Types()).To(Equal([]string{events.EventTypeAccessGranted, events.EventTypeAccessRevoked}))

			valid, err := service.CheckValid(ctx, address, visitor)
			Expect(err).NotTo(HaveOccurred())
			Expect(valid).To(BeFalse())
		})

		It("should still announce revoking an inactive permission", func() {
			_, err := service.Grant(ctx, owner, address, visitor, permission.TypeChat, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Revoke(ctx, owner, address, visitor)
			Expect(err).NotTo(HaveOccurred())

			p, err := service.Revoke(ctx, owner, address, visitor)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.IsActive).To(BeFalse())
			Expect(publisher.Types()).To(HaveLen(3))
			Expect(publisher.Last().EventType()).To(Equal(events.EventTypeAccessRevoked))
		})

		It("should report a permission that was never granted", func() {
			_, err := service.Revoke(ctx, owner, address, visitor)
			Expect(err).To(MatchError(errors.ErrPermissionNotFound))
			Expect(publisher.Types()).To(BeEmpty())
		})

		It("should refuse anyone but the owner", func() {
			_, err := service.Grant(ctx, owner, address, visitor, permission.TypeChat, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Revoke(ctx, visitor, address, visitor)
			Expect(err).To(MatchError(errors.ErrAccessViolation))

			valid, err := service.CheckValid(ctx, address, visitor)
			Expect(err).NotTo(HaveOccurred())
			Expect(valid).To(BeTrue())
		})
	})

	Describe("CheckValid", func() {
		It("should answer false for a visitor without a record", func() {
			valid, err := service.CheckValid(ctx, address, visitor)
			Expect(err).NotTo(HaveOccurred())
			Expect(valid).To(BeFalse())
		})

		It("should follow the clock across the expiry", func() {
			_, err := service.Grant(ctx, owner, address, visitor, permission.TypeChat, at(1_100))
			Expect(err).NotTo(HaveOccurred())

			clk.Set(1_100)
			Expect(service.CheckValid(ctx, address, visitor)).To(BeTrue())

			clk.Advance(1)
			Expect(service.CheckValid(ctx, address, visitor)).To(BeFalse())
		})
	})

	Describe("RequireAccess", func() {
		It("should explain why access is refused", func() {
			Expect(service.RequireAccess(ctx, address, visitor)).To(MatchError(errors.ErrAccessDenied))

			_, err := service.Grant(ctx, owner, address, visitor, permission.TypeChat, at(1_050))
			Expect(err).NotTo(HaveOccurred())
			Expect(service.RequireAccess(ctx, address, visitor)).To(Succeed())

			clk.Advance(51)
			Expect(service.RequireAccess(ctx, address, visitor)).To(MatchError(errors.ErrPermissionExpired))

			_, err = service.Revoke(ctx, owner, address, visitor)
			Expect(err).NotTo(HaveOccurred())
			Expect(service.RequireAccess(ctx, address, visitor)).To(MatchError(errors.ErrAccessDenied))
		})
	})
})
