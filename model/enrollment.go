package model

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment statuses
const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusSuspended = "suspended"
)

// Enrollment grants a user access to a course. Created by the webhook
// reconciler on the first successful payment for the (user, course) pair;
// the composite unique index keeps webhook replays from duplicating it.
type Enrollment struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   uint   `gorm:"not null;uniqueIndex:idx_enrollments_user_course" json:"user_id"`
	CourseID uint   `gorm:"not null;uniqueIndex:idx_enrollments_user_course" json:"course_id"`
	Status   string `gorm:"type:varchar(20);default:'active'" json:"status"`

	// SourcePaymentID points back at the payment that created the grant.
	SourcePaymentID *uint `json:"source_payment_id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// TableName specifies the table name for Enrollment
func (Enrollment) TableName() string {
	return "enrollments"
}
