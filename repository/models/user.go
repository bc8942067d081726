package models

import "time"

// User represents an account that can own vaults and sign transactions
type User struct {
	ID        string    `gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Address   string    `gorm:"column:address;type:varchar(66);uniqueIndex;not null" json:"address"`
	Name      string    `gorm:"column:name;type:varchar(100)" json:"name"`
	Email     string    `gorm:"column:email;type:varchar(255)" json:"email"`
	Avatar    string    `gorm:"column:avatar;type:varchar(255)" json:"avatar"`
	Notify    bool      `gorm:"column:notify;default:false" json:"notify"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
