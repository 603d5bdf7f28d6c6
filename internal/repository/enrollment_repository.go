package repository

import (
	"context"
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.DB.WithContext(ctx).Create(enrollment).Error
}

func (r *EnrollmentRepository) Find(ctx context.Context, studentID, courseID, batchID string) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND batch_id = ?", studentID, courseID, batchID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnrollmentRepository) HasActive(ctx context.Context, studentID, courseID string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ? AND status = ?", studentID, courseID, model.EnrollmentActive).
		Count(&count).Error
	return count > 0, err
}

// ListActiveByStudent 最近的选课排在前面
func (r *EnrollmentRepository) ListActiveByStudent(ctx context.Context, studentID string) ([]model.Enrollment, error) {
	var rows []model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND status = ?", studentID, model.EnrollmentActive).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
