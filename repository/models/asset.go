package models

// Asset is one output of a proposed transaction
type Asset struct {
	ID            string       `gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TransactionID string       `gorm:"column:transaction_id;type:uuid;index;not null" json:"transaction_id"`
	Transaction   *Transaction `gorm:"foreignKey:TransactionID" json:"-"`
	To            string       `gorm:"column:to;type:varchar(66);not null" json:"to"`
	AssetID       string       `gorm:"column:asset_id;type:varchar(66);not null" json:"asset_id"`
	Amount        string       `gorm:"column:amount;type:varchar(30);not null" json:"amount"`
}
