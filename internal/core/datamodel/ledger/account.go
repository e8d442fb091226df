package ledger

import (
	"time"

	"github.com/frahmantamala/chatmate/internal/core/identity"
)

// Account is the spendable balance of one identity.
type Account struct {
	Holder    identity.ID `gorm:"column:holder;primaryKey;type:varchar(44)"`
	Balance   uint64      `gorm:"column:balance;not null;default:0"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string {
	return "accounts"
}
