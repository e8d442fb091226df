package payment

import (
	"context"
	stderrors "errors"
	"log/slog"

	errors "github.com/frahmantamala/chatmate/internal"
	"github.com/frahmantamala/chatmate/internal/assistant"
	"github.com/frahmantamala/chatmate/internal/core/clock"
	"github.com/frahmantamala/chatmate/internal/core/events"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/core/repository"
	"github.com/frahmantamala/chatmate/internal/permission"
)

// Service couples currency transfers to earnings and permissions. Each call
// commits everything or nothing, and notifications go out only after commit.
type Service struct {
	store     repository.Store
	clock     clock.Clock
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(store repository.Store, clk clock.Clock, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		clock:     clk,
		publisher: publisher,
		logger:    logger,
	}
}

func transferError(err error) error {
	if stderrors.Is(err, repository.ErrInsufficientFunds) || stderrors.Is(err, repository.ErrBalanceOverflow) {
		return errors.NewTransferFailedError(err)
	}
	return errors.NewInternalError("transfer failed", err)
}

// PayForAccess charges visitor the assistant's fee and grants a permanent chat
// permission. declaredOwner must name the assistant's owner.
func (s *Service) PayForAccess(ctx context.Context, visitor, assistantAddr, declaredOwner identity.ID) (*Receipt, error) {
	now := s.clock.Now()
	var receipt *Receipt
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		profile, err := assistant.Load(ctx, tx.Assistants(), assistantAddr)
		if err != nil {
			return err
		}
		if !profile.RequiresFee() {
			return errors.ErrNoFeeRequired
		}
		if err := profile.CheckDeclaredOwner(declaredOwner); err != nil {
			return err
		}

		fee := profile.AccessFee
		if err := tx.Ledger().Transfer(ctx, visitor, profile.Owner, fee); err != nil {
			return transferError(err)
		}
		if err := profile.AddEarnings(fee); err != nil {
			return err
		}
		if err := assistant.Save(ctx, tx.Assistants(), profile); err != nil {
			return err
		}

		p, _, err := permission.Find(ctx, tx.Permissions(), assistantAddr, visitor)
		if err != nil {
			return err
		}
		p.Purchase(fee, now)
		if err := permission.Put(ctx, tx.Permissions(), p); err != nil {
			return err
		}

		receipt = newReceipt(KindAccessFee, profile, visitor, fee)
		receipt.Permission = p
		return nil
	})
	if err != nil {
		s.logger.Error("failed to pay for access", "error", err,
			"assistant", assistantAddr.String(), "visitor", visitor.String())
		return nil, err
	}

	s.logger.Info("access payment received",
		"assistant", assistantAddr.String(),
		"visitor", visitor.String(),
		"amount", receipt.Amount,
		"total_earnings", receipt.TotalEarnings)
	s.publish(ctx, events.NewPaymentReceivedEvent(assistantAddr, visitor, receipt.Amount))
	return receipt, nil
}

// Tip sends amount from tipper to the assistant's owner. Permissions are not touched.
func (s *Service) Tip(ctx context.Context, tipper, assistantAddr, declaredOwner identity.ID, amount uint64) (*Receipt, error) {
	if amount == 0 {
		return nil, errors.ErrInvalidAmount
	}

	var receipt *Receipt
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		profile, err := assistant.Load(ctx, tx.Assistants(), assistantAddr)
		if err != nil {
			return err
		}
		if err := profile.CheckDeclaredOwner(declaredOwner); err != nil {
			return err
		}

		if err := tx.Ledger().Transfer(ctx, tipper, profile.Owner, amount); err != nil {
			return transferError(err)
		}
		if err := profile.AddEarnings(amount); err != nil {
			return err
		}
		if err := assistant.Save(ctx, tx.Assistants(), profile); err != nil {
			return err
		}

		receipt = newReceipt(KindTip, profile, tipper, amount)
		return nil
	})
	if err != nil {
		s.logger.Error("failed to tip", "error", err,
			"assistant", assistantAddr.String(), "tipper", tipper.String(), "amount", amount)
		return nil, err
	}

	s.logger.Info("tip received",
		"assistant", assistantAddr.String(),
		"tipper", tipper.String(),
		"amount", amount,
		"total_earnings", receipt.TotalEarnings)
	s.publish(ctx, events.NewTipReceivedEvent(assistantAddr, tipper, amount))
	return receipt, nil
}

func (s *Service) Balance(ctx context.Context, holder identity.ID) (uint64, error) {
	balance, err := s.store.Ledger().Balance(ctx, holder)
	if err != nil {
		return 0, errors.NewInternalError("failed to read balance", err)
	}
	return balance, nil
}

func (s *Service) Now() int64 {
	return s.clock.Now()
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
