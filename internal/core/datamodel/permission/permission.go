package permission

import (
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/chatmate/internal/core/identity"
)

type Type uint8

const (
	TypeChat Type = iota
	TypeSchedule
	TypeFullAccess
)

var typeNames = map[Type]string{
	TypeChat:       "chat",
	TypeSchedule:   "schedule",
	TypeFullAccess: "full_access",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseType accepts the wire names. An empty string is the default, chat.
func ParseType(s string) (Type, error) {
	if s == "" {
		return TypeChat, nil
	}
	normalized := strings.ToLower(strings.ReplaceAll(s, "-", "_"))
	for t, name := range typeNames {
		if name == normalized || (t == TypeFullAccess && normalized == "fullaccess") {
			return t, nil
		}
	}
	return TypeChat, fmt.Errorf("unknown permission type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type Permission struct {
	Assistant      identity.ID `gorm:"column:assistant;primaryKey;type:varchar(44)"`
	Visitor        identity.ID `gorm:"column:visitor;primaryKey;type:varchar(44)"`
	PermissionType Type        `gorm:"column:permission_type;not null;default:0"`
	GrantedAt      int64       `gorm:"column:granted_at;not null"`
	ExpiresAt      *int64      `gorm:"column:expires_at"`
	IsActive       bool        `gorm:"column:is_active;not null"`
	PaidAmount     uint64      `gorm:"column:paid_amount;not null;default:0"`
	UpdatedAt      time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (Permission) TableName() string {
	return "permissions"
}
