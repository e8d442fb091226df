package assistant

import (
	errors "github.com/frahmantamala/chatmate/internal"
	"github.com/frahmantamala/chatmate/internal/core/common/validation"
)

type CreateProfileDTO struct {
	Username  string `json:"username"`
	AccessFee uint64 `json:"access_fee"`
}

func (dto CreateProfileDTO) Validate() *errors.AppError {
	return validation.ValidateUsername(dto.Username, MaxUsernameLength)
}

// UpdateProfileDTO carries only the fields the owner wants to change.
type UpdateProfileDTO struct {
	AccessFee          *uint64 `json:"access_fee,omitempty"`
	IsAccessRestricted *bool   `json:"is_access_restricted,omitempty"`
}

type ProfileResponse struct {
	Address            string `json:"address"`
	Owner              string `json:"owner"`
	Username           string `json:"username"`
	AccessFee          uint64 `json:"access_fee"`
	TotalEarnings      uint64 `json:"total_earnings"`
	IsAccessRestricted bool   `json:"is_access_restricted"`
}
