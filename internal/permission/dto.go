package permission

import (
	errors "github.com/frahmantamala/chatmate/internal"
)

type GrantAccessDTO struct {
	PermissionType string `json:"permission_type,omitempty"`
	ExpiresAt      *int64 `json:"expires_at,omitempty"`
}

func (dto GrantAccessDTO) ParsedType() (Type, *errors.AppError) {
	t, err := ParseType(dto.PermissionType)
	if err != nil {
		return TypeChat, errors.NewValidationFieldError("permission_type", err.Error(), errors.ErrCodeInvalidType)
	}
	return t, nil
}

type PermissionResponse struct {
	Assistant      string `json:"assistant"`
	Visitor        string `json:"visitor"`
	PermissionType string `json:"permission_type"`
	GrantedAt      int64  `json:"granted_at"`
	ExpiresAt      *int64 `json:"expires_at,omitempty"`
	IsActive       bool   `json:"is_active"`
	PaidAmount     uint64 `json:"paid_amount"`
	Valid          bool   `json:"valid"`
}

type ValidityResponse struct {
	Assistant string `json:"assistant"`
	Visitor   string `json:"visitor"`
	Valid     bool   `json:"valid"`
	CheckedAt int64  `json:"checked_at"`
}
