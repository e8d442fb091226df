package permission

import (
	"context"
	"net/http"

	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/transport"
)

type ServiceAPI interface {
	Grant(ctx context.Context, owner, assistant, visitor identity.ID, permissionType Type, expiresAt *int64) (*Permission, error)
	Revoke(ctx context.Context, owner, assistant, visitor identity.ID) (*Permission, error)
	CheckValid(ctx context.Context, assistant, visitor identity.ID) (bool, error)
	RequireAccess(ctx context.Context, assistant, visitor identity.ID) error
	Get(ctx context.Context, assistant, visitor identity.ID) (*Permission, error)
	Now() int64
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

func (h *Handler) pathIDs(r *http.Request) (assistant, visitor identity.ID, err error) {
	if assistant, err = h.IdentityParam(r, "assistant"); err != nil {
		return
	}
	visitor, err = h.IdentityParam(r, "visitor")
	return
}

func (h *Handler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	caller, err := h.Caller(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	assistant, visitor, err := h.pathIDs(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var dto GrantAccessDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	permissionType, appErr := dto.ParsedType()
	if appErr != nil {
		h.HandleServiceError(w, r, appErr)
		return
	}

	p, err := h.Service.Grant(r.Context(), caller, assistant, visitor, permissionType, dto.ExpiresAt)
	if err != nil {
		h.Logger.Error("GrantAccess: service error", "error", err, "assistant", assistant.String(), "visitor", visitor.String())
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p.ToResponse(h.Service.Now()))
}

func (h *Handler) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	caller, err := h.Caller(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	assistant, visitor, err := h.pathIDs(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	p, err := h.Service.Revoke(r.Context(), caller, assistant, visitor)
	if err != nil {
		h.Logger.Error("RevokeAccess: service error", "error", err, "assistant", assistant.String(), "visitor", visitor.String())
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p.ToResponse(h.Service.Now()))
}

func (h *Handler) GetPermission(w http.ResponseWriter, r *http.Request) {
	assistant, visitor, err := h.pathIDs(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	p, err := h.Service.Get(r.Context(), assistant, visitor)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p.ToResponse(h.Service.Now()))
}

func (h *Handler) CheckValid(w http.ResponseWriter, r *http.Request) {
	assistant, visitor, err := h.pathIDs(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	valid, err := h.Service.CheckValid(r.Context(), assistant, visitor)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ValidityResponse{
		Assistant: assistant.String(),
		Visitor:   visitor.String(),
		Valid:     valid,
		CheckedAt: h.Service.Now(),
	})
}

// RequireAccess answers 204 when the visitor may proceed and the refusal
// reason otherwise.
func (h *Handler) RequireAccess(w http.ResponseWriter, r *http.Request) {
	assistant, visitor, err := h.pathIDs(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.RequireAccess(r.Context(), assistant, visitor); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
