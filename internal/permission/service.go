package permission

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
)

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

// Find returns the stored record or, when none exists, a fresh inactive one
// keyed by (assistantAddr, visitor). found tells the two apart.
func Find(ctx context.Context, repo repository.PermissionRepository, assistantAddr, visitor identity.ID) (p *Permission, found bool, err error) {
	data, err := repo.Get(ctx, assistantAddr, visitor)
	if stderrors.Is(err, repository.ErrNotFound) {
		return &Permission{Assistant: assistantAddr, Visitor: visitor}, false, nil
	}
	if err != nil {
		return nil, false, errors.NewInternalError("failed to load permission", err)
	}
	return FromDataModel(data), true, nil
}

func Put(ctx context.Context, repo repository.PermissionRepository, p *Permission) error {
	if err := repo.Upsert(ctx, ToDataModel(p)); err != nil {
		return errors.NewInternalError("failed to store permission", err)
	}
	return nil
}

// Grant gives visitor access of the given type until expiresAt, or
// permanently when expiresAt is nil.
func (s *Service) Grant(ctx context.Context, owner, assistantAddr, visitor identity.ID, permissionType Type, expiresAt *int64) (*Permission, error) {
	if !permissionType.Valid() {
		return nil, errors.NewValidationFieldError("permission_type", "unknown permission type", errors.ErrCodeInvalidType)
	}

	now := s.clock.Now()
	var granted *Permission
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		profile, err := assistant.Load(ctx, tx.Assistants(), assistantAddr)
		if err != nil {
			return err
		}
		if err := profile.AuthorizeOwner(owner); err != nil {
			return err
		}

		p, _, err := Find(ctx, tx.Permissions(), assistantAddr, visitor)
		if err != nil {
			return err
		}
		p.Grant(permissionType, expiresAt, now)
		if err := Put(ctx, tx.Permissions(), p); err != nil {
			return err
		}
		granted = p
		return nil
	})
	if err != nil {
		s.logger.Error("failed to grant access", "error", err,
			"assistant", assistantAddr.String(), "visitor", visitor.String())
		return nil, err
	}

	s.logger.Info("access granted",
		"assistant", assistantAddr.String(),
		"visitor", visitor.String(),
		"permission_type", permissionType.String())
	s.publish(ctx, events.NewAccessGrantedEvent(assistantAddr, visitor, permissionType.String(), granted.ExpiresAt))
	return granted, nil
}

// Revoke deactivates an existing permission. Revoking an inactive permission
// changes nothing but is still reported.
func (s *Service) Revoke(ctx context.Context, owner, assistantAddr, visitor identity.ID) (*Permission, error) {
	var revoked *Permission
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		profile, err := assistant.Load(ctx, tx.Assistants(), assistantAddr)
		if err != nil {
			return err
		}
		if err := profile.AuthorizeOwner(owner); err != nil {
			return err
		}

		p, found, err := Find(ctx, tx.Permissions(), assistantAddr, visitor)
		if err != nil {
			return err
		}
		if !found {
			return errors.ErrPermissionNotFound
		}
		if p.IsActive {
			p.Revoke()
			if err := Put(ctx, tx.Permissions(), p); err != nil {
				return err
			}
		}
		revoked = p
		return nil
	})
	if err != nil {
		s.logger.Error("failed to revoke access", "error", err,
			"assistant", assistantAddr.String(), "visitor", visitor.String())
		return nil, err
	}

	s.logger.Info("access revoked", "assistant", assistantAddr.String(), "visitor", visitor.String())
	s.publish(ctx, events.NewAccessRevokedEvent(assistantAddr, visitor))
	return revoked, nil
}

// CheckValid answers whether visitor may use the assistant right now. It
// never fails because a record is missing.
func (s *Service) CheckValid(ctx context.Context, assistantAddr, visitor identity.ID) (bool, error) {
	p, _, err := Find(ctx, s.store.Permissions(), assistantAddr, visitor)
	if err != nil {
		return false, err
	}
	return p.IsValidAt(s.clock.Now()), nil
}

// RequireAccess is CheckValid for gates that need a reason: ErrAccessDenied
// for missing or revoked permissions, ErrPermissionExpired once expired.
func (s *Service) RequireAccess(ctx context.Context, assistantAddr, visitor identity.ID) error {
	p, found, err := Find(ctx, s.store.Permissions(), assistantAddr, visitor)
	if err != nil {
		return err
	}
	if !found {
		return errors.ErrAccessDenied
	}
	return p.Check(s.clock.Now())
}

func (s *Service) Get(ctx context.Context, assistantAddr, visitor identity.ID) (*Permission, error) {
	p, found, err := Find(ctx, s.store.Permissions(), assistantAddr, visitor)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.ErrPermissionNotFound
	}
	return p, nil
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
