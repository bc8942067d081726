package models

import "time"

// Witness is one signer's response slot for one transaction. Exactly one row
// exists per (transaction, required signer) pair, created at proposal time.
// The signature is immutable once the slot leaves PENDING.
type Witness struct {
	ID            string        `gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TransactionID string        `gorm:"column:transaction_id;type:uuid;uniqueIndex:idx_witness_slot;not null" json:"transaction_id"`
	Transaction   *Transaction  `gorm:"foreignKey:TransactionID" json:"-"`
	Account       string        `gorm:"column:account;type:varchar(66);uniqueIndex:idx_witness_slot;not null" json:"account"`
	Status        WitnessStatus `gorm:"column:status;type:varchar(10);not null" json:"status"`
	Signature     *string       `gorm:"column:signature;type:text" json:"signature,omitempty"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
