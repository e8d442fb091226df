package assistant

import (
	"time"

	"github.com/frahmantamala/chatmate/internal/core/identity"
)

const MaxUsernameLength = 32

type Assistant struct {
	Address            identity.ID `gorm:"column:address;primaryKey;type:varchar(44)"`
	Owner              identity.ID `gorm:"column:owner;not null;uniqueIndex;type:varchar(44)"`
	Username           string      `gorm:"column:username;not null;size:32"`
	AccessFee          uint64      `gorm:"column:access_fee;not null;default:0"`
	TotalEarnings      uint64      `gorm:"column:total_earnings;not null;default:0"`
	IsAccessRestricted bool        `gorm:"column:is_access_restricted;not null;default:false"`
	CreatedAt          time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (Assistant) TableName() string {
	return "assistants"
}
