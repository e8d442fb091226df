package payment

import (
	"context"
	"net/http"

	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/transport"
)

type ServiceAPI interface {
	PayForAccess(ctx context.Context, visitor, assistant, declaredOwner identity.ID) (*Receipt, error)
	Tip(ctx context.Context, tipper, assistant, declaredOwner identity.ID, amount uint64) (*Receipt, error)
	Balance(ctx context.Context, holder identity.ID) (uint64, error)
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

func (h *Handler) PayForAccess(w http.ResponseWriter, r *http.Request) {
	caller, err := h.Caller(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	assistant, err := h.IdentityParam(r, "assistant")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var dto PayForAccessDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	owner, appErr := dto.Owner()
	if appErr != nil {
		h.HandleServiceError(w, r, appErr)
		return
	}

	receipt, err := h.Service.PayForAccess(r.Context(), caller, assistant, owner)
	if err != nil {
		h.Logger.Error("PayForAccess: service error", "error", err, "assistant", assistant.String(), "visitor", caller.String())
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, receipt.ToResponse(h.Service.Now()))
}

func (h *Handler) Tip(w http.ResponseWriter, r *http.Request) {
	caller, err := h.Caller(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	assistant, err := h.IdentityParam(r, "assistant")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var dto TipDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	owner, appErr := dto.Owner()
	if appErr != nil {
		h.HandleServiceError(w, r, appErr)
		return
	}

	receipt, err := h.Service.Tip(r.Context(), caller, assistant, owner, dto.Amount)
	if err != nil {
		h.Logger.Error("Tip: service error", "error", err, "assistant", assistant.String(), "tipper", caller.String())
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, receipt.ToResponse(h.Service.Now()))
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	holder, err := h.IdentityParam(r, "identity")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	balance, err := h.Service.Balance(r.Context(), holder)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, BalanceResponse{Holder: holder.String(), Balance: balance})
}
