package assistant

import (
	"math/bits"

	errors "github.com/frahmantamala/chatmate/internal"
	assistantDatamodel "github.com/frahmantamala/chatmate/internal/core/datamodel/assistant"
	"github.com/frahmantamala/chatmate/internal/core/identity"
)

const MaxUsernameLength = assistantDatamodel.MaxUsernameLength

// Profile is an owner's assistant listing: its access fee and what it has earned.
type Profile struct {
	Address            identity.ID
	Owner              identity.ID
	Username           string
	AccessFee          uint64
	TotalEarnings      uint64
	IsAccessRestricted bool
}

func NewProfile(owner identity.ID, username string, accessFee uint64) *Profile {
	return &Profile{
		Address:   identity.AssistantAddress(owner),
		Owner:     owner,
		Username:  username,
		AccessFee: accessFee,
	}
}

func (p *Profile) RequiresFee() bool {
	return p.AccessFee > 0
}

// AuthorizeOwner fails unless caller is the profile's owner.
func (p *Profile) AuthorizeOwner(caller identity.ID) error {
	if caller != p.Owner {
		return errors.ErrAccessViolation
	}
	return nil
}

// CheckDeclaredOwner compares the payee a payer named against the real owner.
func (p *Profile) CheckDeclaredOwner(declared identity.ID) error {
	if declared != p.Owner {
		return errors.ErrInvalidOwner
	}
	return nil
}

// AddEarnings credits amount, refusing to wrap around.
func (p *Profile) AddEarnings(amount uint64) error {
	sum, carry := bits.Add64(p.TotalEarnings, amount, 0)
	if carry != 0 {
		return errors.ErrEarningsOverflow
	}
	p.TotalEarnings = sum
	return nil
}

func (p *Profile) ToResponse() ProfileResponse {
	return ProfileResponse{
		Address:            p.Address.String(),
		Owner:              p.Owner.String(),
		Username:           p.Username,
		AccessFee:          p.AccessFee,
		TotalEarnings:      p.TotalEarnings,
		IsAccessRestricted: p.IsAccessRestricted,
	}
}

func ToDataModel(p *Profile) *assistantDatamodel.Assistant {
	return &assistantDatamodel.Assistant{
		Address:            p.Address,
		Owner:              p.Owner,
		Username:           p.Username,
		AccessFee:          p.AccessFee,
		TotalEarnings:      p.TotalEarnings,
		IsAccessRestricted: p.IsAccessRestricted,
	}
}

func FromDataModel(a *assistantDatamodel.Assistant) *Profile {
	return &Profile{
		Address:            a.Address,
		Owner:              a.Owner,
		Username:           a.Username,
		AccessFee:          a.AccessFee,
		TotalEarnings:      a.TotalEarnings,
		IsAccessRestricted: a.IsAccessRestricted,
	}
}
