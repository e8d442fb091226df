package assistant

import (
	"context"
	stderrors "errors"
	"log/slog"

	errors "github.com/frahmantamala/chatmate/internal"
	"github.com/frahmantamala/chatmate/internal/core/events"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/core/repository"
)

type Service struct {
	store     repository.Store
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(store repository.Store, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Load reads a profile through repo, mapping a missing record to ErrAssistantNotFound.
func Load(ctx context.Context, repo repository.AssistantRepository, address identity.ID) (*Profile, error) {
	data, err := repo.GetByAddress(ctx, address)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.ErrAssistantNotFound
	}
	if err != nil {
		return nil, errors.NewInternalError("failed to load assistant", err)
	}
	return FromDataModel(data), nil
}

func Save(ctx context.Context, repo repository.AssistantRepository, p *Profile) error {
	if err := repo.Update(ctx, ToDataModel(p)); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.ErrAssistantNotFound
		}
		return errors.NewInternalError("failed to save assistant", err)
	}
	return nil
}

// CreateProfile registers the single profile owner may have.
func (s *Service) CreateProfile(ctx context.Context, owner identity.ID, username string, accessFee uint64) (*Profile, error) {
	if appErr := (CreateProfileDTO{Username: username, AccessFee: accessFee}).Validate(); appErr != nil {
		return nil, appErr
	}

	profile := NewProfile(owner, username, accessFee)
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		err := tx.Assistants().Create(ctx, ToDataModel(profile))
		if stderrors.Is(err, repository.ErrAlreadyExists) {
			return errors.ErrDuplicateProfile
		}
		if err != nil {
			return errors.NewInternalError("failed to create assistant", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to create profile", "error", err, "owner", owner.String())
		return nil, err
	}

	s.logger.Info("assistant profile created",
		"assistant", profile.Address.String(),
		"owner", owner.String(),
		"access_fee", accessFee)
	s.publish(ctx, events.NewAssistantCreatedEvent(owner, username, accessFee))
	return profile, nil
}

// UpdateProfile applies the supplied fields of input to the profile at
// assistant. Only its owner may call it. Owner and username never change.
func (s *Service) UpdateProfile(ctx context.Context, caller, assistant identity.ID, input UpdateProfileDTO) (*Profile, error) {
	var updated *Profile
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		profile, err := Load(ctx, tx.Assistants(), assistant)
		if err != nil {
			return err
		}
		if err := profile.AuthorizeOwner(caller); err != nil {
			return err
		}
		if input.AccessFee != nil {
			profile.AccessFee = *input.AccessFee
		}
		if input.IsAccessRestricted != nil {
			profile.IsAccessRestricted = *input.IsAccessRestricted
		}
		if err := Save(ctx, tx.Assistants(), profile); err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		s.logger.Error("failed to update profile", "error", err, "caller", caller.String(), "assistant", assistant.String())
		return nil, err
	}

	s.logger.Info("assistant profile updated",
		"assistant", updated.Address.String(),
		"access_fee", updated.AccessFee,
		"is_access_restricted", updated.IsAccessRestricted)
	return updated, nil
}

func (s *Service) GetProfile(ctx context.Context, address identity.ID) (*Profile, error) {
	return Load(ctx, s.store.Assistants(), address)
}

func (s *Service) GetProfileByOwner(ctx context.Context, owner identity.ID) (*Profile, error) {
	return Load(ctx, s.store.Assistants(), identity.AssistantAddress(owner))
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
