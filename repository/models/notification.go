package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Notification titles emitted by the transaction lifecycle.
const (
	NotificationTransactionCreated   = "Transaction created"
	NotificationTransactionSigned    = "Transaction signed"
	NotificationTransactionDeclined  = "Transaction declined"
	NotificationTransactionCompleted = "Transaction completed"
)

// Notification is an in-app message delivered to a vault member
type Notification struct {
	ID        string              `gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID    string              `gorm:"column:user_id;type:uuid;index;not null" json:"user_id"`
	User      *User               `gorm:"foreignKey:UserID" json:"-"`
	Title     string              `gorm:"column:title;type:varchar(100);not null" json:"title"`
	Summary   NotificationSummary `gorm:"column:summary;type:jsonb" json:"summary"`
	Read      bool                `gorm:"column:read;default:false" json:"read"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// NotificationSummary points the recipient at the vault and transaction the
// notification is about.
type NotificationSummary struct {
	VaultID         string `json:"vault_id"`
	VaultName       string `json:"vault_name"`
	TransactionID   string `json:"transaction_id"`
	TransactionName string `json:"transaction_name"`
}

// Value implements driver.Valuer.
func (s NotificationSummary) Value() (driver.Value, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshal notification summary")
	}
	return raw, nil
}

// Scan implements sql.Scanner.
func (s *NotificationSummary) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = NotificationSummary{}
		return nil
	case []byte:
		return errors.Wrap(json.Unmarshal(v, s), "unmarshal notification summary")
	case string:
		return errors.Wrap(json.Unmarshal([]byte(v), s), "unmarshal notification summary")
	default:
		return errors.Errorf("unsupported summary column type %T", src)
	}
}
