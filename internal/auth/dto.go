package auth

import (
	errors "github.com/frahmantamala/chatmate/internal"
	"github.com/frahmantamala/chatmate/internal/core/common/validation"
)

// LoginDTO carries a signature over LoginMessage(identity, timestamp).
// Signature is base58 encoded.
type LoginDTO struct {
	Identity  string `json:"identity"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

func (d LoginDTO) Validate() *errors.AppError {
	validator := validation.NewValidator()
	validator.Field("identity", d.Identity).Required().Identity()
	validator.Field("signature", d.Signature).Required()
	validator.Field("timestamp", d.Timestamp).Custom(func(value interface{}) *errors.AppError {
		if ts, ok := value.(int64); ok && ts <= 0 {
			return errors.NewValidationFieldError("timestamp", "timestamp is required", errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return validator.Validate()
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() *errors.AppError {
	validator := validation.NewValidator()
	validator.Field("refresh_token", d.RefreshToken).Required()
	return validator.Validate()
}
