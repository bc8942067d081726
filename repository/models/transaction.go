package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Transaction represents a proposed settlement-network transaction awaiting
// or having completed multi-party approval.
type Transaction struct {
	ID       string            `gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name     string            `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Hash     string            `gorm:"column:hash;type:varchar(66);index;not null" json:"hash"`
	VaultID  string            `gorm:"column:vault_id;type:uuid;index;not null" json:"vault_id"`
	Vault    *Vault            `gorm:"foreignKey:VaultID" json:"vault,omitempty"`
	Kind     TransactionType   `gorm:"column:kind;type:varchar(30);not null" json:"kind"`
	Status   TransactionStatus `gorm:"column:status;type:varchar(30);index;not null" json:"status"`
	TxData   []byte            `gorm:"column:tx_data;type:jsonb" json:"tx_data"`
	Resume   Resume            `gorm:"column:resume;type:jsonb" json:"resume"`
	GasUsed  string            `gorm:"column:gas_used;type:varchar(30)" json:"gas_used"`
	SendTime *time.Time        `gorm:"column:send_time" json:"send_time,omitempty"`

	CreatedByID string `gorm:"column:created_by;type:uuid" json:"created_by"`
	CreatedBy   *User  `gorm:"foreignKey:CreatedByID" json:"-"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`

	// Relationships
	Witnesses []Witness `gorm:"foreignKey:TransactionID" json:"witnesses,omitempty"`
	Assets    []Asset   `gorm:"foreignKey:TransactionID" json:"assets,omitempty"`
}

// Resume is the denormalized snapshot of a transaction's approval and
// settlement state, stored alongside the record as jsonb.
type Resume struct {
	Hash            string            `json:"hash"`
	Status          TransactionStatus `json:"status"`
	Witnesses       []string          `json:"witnesses"`
	RequiredSigners int               `json:"required_signers"`
	TotalSigners    int               `json:"total_signers"`
	Vault           ResumeVault       `json:"vault"`
	GasUsed         string            `json:"gas_used,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// ResumeVault is the vault reference embedded in a resume snapshot.
type ResumeVault struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// Value implements driver.Valuer so gorm can persist the snapshot as jsonb.
func (r Resume) Value() (driver.Value, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "marshal resume")
	}
	return raw, nil
}

// Scan implements sql.Scanner.
func (r *Resume) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = Resume{}
		return nil
	case []byte:
		return errors.Wrap(json.Unmarshal(v, r), "unmarshal resume")
	case string:
		return errors.Wrap(json.Unmarshal([]byte(v), r), "unmarshal resume")
	default:
		return errors.Errorf("unsupported resume column type %T", src)
	}
}
