package payment

import (
	"github.com/frahmantamala/chatmate/internal/assistant"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/permission"
)

type Kind string

const (
	KindAccessFee Kind = "access_fee"
	KindTip       Kind = "tip"
)

// Receipt describes a committed payment.
type Receipt struct {
	Kind          Kind
	Assistant     identity.ID
	Payer         identity.ID
	Owner         identity.ID
	Amount        uint64
	TotalEarnings uint64
	Permission    *permission.Permission
}

func newReceipt(kind Kind, profile *assistant.Profile, payer identity.ID, amount uint64) *Receipt {
	return &Receipt{
		Kind:          kind,
		Assistant:     profile.Address,
		Payer:         payer,
		Owner:         profile.Owner,
		Amount:        amount,
		TotalEarnings: profile.TotalEarnings,
	}
}

func (r *Receipt) ToResponse(now int64) ReceiptResponse {
	resp := ReceiptResponse{
		Kind:          string(r.Kind),
		Assistant:     r.Assistant.String(),
		Payer:         r.Payer.String(),
		Owner:         r.Owner.String(),
		Amount:        r.Amount,
		TotalEarnings: r.TotalEarnings,
	}
	if r.Permission != nil {
		p := r.Permission.ToResponse(now)
		resp.Permission = &p
	}
	return resp
}
