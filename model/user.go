package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleStudent   = "student"
	RoleProfessor = "professor"
	RoleAdmin     = "admin"
)

// User mirrors the identity provider's account record. Credentials and
// session issuance live with the provider; this service only needs the id,
// role and contact fields for ownership checks and gateway billing data.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	FirstName string         `gorm:"type:varchar(100)" json:"first_name"`
	LastName  string         `gorm:"type:varchar(100)" json:"last_name"`
	Phone     string         `gorm:"type:varchar(30)" json:"phone"`
	Role      string         `gorm:"type:varchar(20);default:'student'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
