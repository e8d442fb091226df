package permission

import (
	errors "github.com/frahmantamala/chatmate/internal"
	permissionDatamodel "github.com/frahmantamala/chatmate/internal/core/datamodel/permission"
	"github.com/frahmantamala/chatmate/internal/core/identity"
)

type Type = permissionDatamodel.Type

const (
	TypeChat       = permissionDatamodel.TypeChat
	TypeSchedule   = permissionDatamodel.TypeSchedule
	TypeFullAccess = permissionDatamodel.TypeFullAccess
)

var ParseType = permissionDatamodel.ParseType

// Permission records what a visitor may do with an assistant. A missing
// record behaves like an inactive one.
type Permission struct {
	Assistant      identity.ID
	Visitor        identity.ID
	PermissionType Type
	GrantedAt      int64
	ExpiresAt      *int64
	IsActive       bool
	PaidAmount     uint64
}

// IsValidAt reports whether the permission can be used at now. Expiry is
// inclusive: a permission expiring at t is still valid at t.
func (p *Permission) IsValidAt(now int64) bool {
	if p == nil || !p.IsActive {
		return false
	}
	return p.ExpiresAt == nil || now <= *p.ExpiresAt
}

// Check is the strict form of IsValidAt.
func (p *Permission) Check(now int64) error {
	if p == nil || !p.IsActive {
		return errors.ErrAccessDenied
	}
	if p.ExpiresAt != nil && now > *p.ExpiresAt {
		return errors.ErrPermissionExpired
	}
	return nil
}

// Grant overwrites type, expiry and activity. The paid amount of an earlier
// payment is carried over.
func (p *Permission) Grant(permissionType Type, expiresAt *int64, now int64) {
	p.PermissionType = permissionType
	p.ExpiresAt = copyInt64(expiresAt)
	p.GrantedAt = now
	p.IsActive = true
}

// Purchase turns the record into a permanent chat permission bought for amount.
func (p *Permission) Purchase(amount uint64, now int64) {
	p.PermissionType = TypeChat
	p.ExpiresAt = nil
	p.GrantedAt = now
	p.IsActive = true
	p.PaidAmount = amount
}

func (p *Permission) Revoke() {
	p.IsActive = false
}

func (p *Permission) ToResponse(now int64) PermissionResponse {
	return PermissionResponse{
		Assistant:      p.Assistant.String(),
		Visitor:        p.Visitor.String(),
		PermissionType: p.PermissionType.String(),
		GrantedAt:      p.GrantedAt,
		ExpiresAt:      copyInt64(p.ExpiresAt),
		IsActive:       p.IsActive,
		PaidAmount:     p.PaidAmount,
		Valid:          p.IsValidAt(now),
	}
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func ToDataModel(p *Permission) *permissionDatamodel.Permission {
	return &permissionDatamodel.Permission{
		Assistant:      p.Assistant,
		Visitor:        p.Visitor,
		PermissionType: p.PermissionType,
		GrantedAt:      p.GrantedAt,
		ExpiresAt:      copyInt64(p.ExpiresAt),
		IsActive:       p.IsActive,
		PaidAmount:     p.PaidAmount,
	}
}

func FromDataModel(p *permissionDatamodel.Permission) *Permission {
	return &Permission{
		Assistant:      p.Assistant,
		Visitor:        p.Visitor,
		PermissionType: p.PermissionType,
		GrantedAt:      p.GrantedAt,
		ExpiresAt:      copyInt64(p.ExpiresAt),
		IsActive:       p.IsActive,
		PaidAmount:     p.PaidAmount,
	}
}
