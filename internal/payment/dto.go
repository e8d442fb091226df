package payment

import (
	errors "github.com/frahmantamala/chatmate/internal"
	"github.com/frahmantamala/chatmate/internal/core/common/validation"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/permission"
)

// PayForAccessDTO names the payee the visitor expects to pay.
type PayForAccessDTO struct {
	DeclaredOwner string `json:"declared_owner"`
}

func (dto PayForAccessDTO) Owner() (identity.ID, *errors.AppError) {
	return validation.ParseIdentity("declared_owner", dto.DeclaredOwner)
}

type TipDTO struct {
	DeclaredOwner string `json:"declared_owner"`
	Amount        uint64 `json:"amount"`
}

func (dto TipDTO) Owner() (identity.ID, *errors.AppError) {
	return validation.ParseIdentity("declared_owner", dto.DeclaredOwner)
}

type ReceiptResponse struct {
	Kind          string                         `json:"kind"`
	Assistant     string                         `json:"assistant"`
	Payer         string                         `json:"payer"`
	Owner         string                         `json:"owner"`
	Amount        uint64                         `json:"amount"`
	TotalEarnings uint64                         `json:"total_earnings"`
	Permission    *permission.PermissionResponse `json:"permission,omitempty"`
}

type BalanceResponse struct {
	Holder  string `json:"holder"`
	Balance uint64 `json:"balance"`
}
