package assistant

import (
	"context"
	"net/http"

	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/transport"
)

type ServiceAPI interface {
	CreateProfile(ctx context.Context, owner identity.ID, username string, accessFee uint64) (*Profile, error)
	UpdateProfile(ctx context.Context, caller, assistant identity.ID, input UpdateProfileDTO) (*Profile, error)
	GetProfile(ctx context.Context, address identity.ID) (*Profile, error)
	GetProfileByOwner(ctx context.Context, owner identity.ID) (*Profile, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := h.Caller(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var dto CreateProfileDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	profile, err := h.Service.CreateProfile(r.Context(), caller, dto.Username, dto.AccessFee)
	if err != nil {
		h.Logger.Error("CreateProfile: service error", "error", err, "owner", caller.String())
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, profile.ToResponse())
}

// UpdateProfile handles PATCH /assistants/{assistant}.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := h.Caller(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	address, err := h.IdentityParam(r, "assistant")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.update(w, r, caller, address)
}

// UpdateOwnProfile handles PATCH /assistants/me.
func (h *Handler) UpdateOwnProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := h.Caller(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.update(w, r, caller, identity.AssistantAddress(caller))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, caller, address identity.ID) {
	var dto UpdateProfileDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	profile, err := h.Service.UpdateProfile(r.Context(), caller, address, dto)
	if err != nil {
		h.Logger.Error("UpdateProfile: service error", "error", err, "assistant", address.String())
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, profile.ToResponse())
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	address, err := h.IdentityParam(r, "assistant")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	profile, err := h.Service.GetProfile(r.Context(), address)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, profile.ToResponse())
}

func (h *Handler) GetProfileByOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := h.IdentityParam(r, "owner")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	profile, err := h.Service.GetProfileByOwner(r.Context(), owner)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, profile.ToResponse())
}
