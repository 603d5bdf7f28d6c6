package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// swagger:model Enrollment
type Enrollment struct {
	UUIDBase
	StudentID     string           `gorm:"type:varchar(36);not null;uniqueIndex:idx_enrollment_student_course_batch" json:"studentId"`
	CourseID      string           `gorm:"type:varchar(36);not null;uniqueIndex:idx_enrollment_student_course_batch;index" json:"courseId"`
	BatchID       string           `gorm:"type:varchar(36);not null;uniqueIndex:idx_enrollment_student_course_batch" json:"batchId"`
	EnrolledAt    time.Time        `gorm:"not null" json:"enrolledAt"`
	Status        EnrollmentStatus `gorm:"size:20;default:'active'" json:"status"`
	PaymentStatus string           `gorm:"size:20;default:'paid'" json:"paymentStatus"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
