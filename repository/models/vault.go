package models

import "time"

// Vault represents a shared custody account guarded by an N-of-M signature
// predicate. Membership and threshold are fixed at creation.
type Vault struct {
	ID               string    `gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name             string    `gorm:"column:name;type:varchar(100);not null" json:"name"`
	PredicateAddress string    `gorm:"column:predicate_address;type:varchar(66);uniqueIndex;not null" json:"predicate_address"`
	Description      string    `gorm:"column:description;type:varchar(255)" json:"description,omitempty"`
	MinSigners       int       `gorm:"column:min_signers;not null" json:"min_signers"`
	Bytes            string    `gorm:"column:bytes;type:text" json:"bytes"`
	ABI              string    `gorm:"column:abi;type:text" json:"abi"`
	Configurable     string    `gorm:"column:configurable;type:text" json:"configurable"`
	Provider         string    `gorm:"column:provider;type:varchar(255);not null" json:"provider"`
	ChainID          *int      `gorm:"column:chain_id" json:"chain_id,omitempty"`
	OwnerID          string    `gorm:"column:owner_id;type:uuid;index" json:"owner_id"`
	Owner            *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	Members      []User        `gorm:"many2many:vault_members;" json:"members,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:VaultID" json:"-"`
}
