package repository

import (
	"context"
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type QuizSubmissionRepository struct {
	DB *gorm.DB
}

func NewQuizSubmissionRepository(db *gorm.DB) *QuizSubmissionRepository {
	return &QuizSubmissionRepository{DB: db}
}

// Create 依赖 (quiz_id, student_id, course_id) 唯一索引，
// 并发重复提交时只有一条能成功，其余返回 gorm.ErrDuplicatedKey
func (r *QuizSubmissionRepository) Create(ctx context.Context, sub *model.QuizSubmission) error {
	return r.DB.WithContext(ctx).Create(sub).Error
}

func (r *QuizSubmissionRepository) Exists(ctx context.Context, quizID, studentID, courseID string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.QuizSubmission{}).
		Where("quiz_id = ? AND student_id = ? AND course_id = ?", quizID, studentID, courseID).
		Count(&count).Error
	return count > 0, err
}

func (r *QuizSubmissionRepository) FindByQuizAndStudent(ctx context.Context, quizID, studentID string) (*model.QuizSubmission, error) {
	var s model.QuizSubmission
	err := r.DB.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *QuizSubmissionRepository) ListByStudentAndCourse(ctx context.Context, studentID, courseID string) ([]model.QuizSubmission, error) {
	var subs []model.QuizSubmission
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Order("submitted_at desc").
		Find(&subs).Error
	return subs, err
}

func (r *QuizSubmissionRepository) ListByQuizIDs(ctx context.Context, quizIDs []string) ([]model.QuizSubmission, error) {
	if len(quizIDs) == 0 {
		return nil, nil
	}
	var subs []model.QuizSubmission
	err := r.DB.WithContext(ctx).
		Where("quiz_id IN ?", quizIDs).
		Order("submitted_at asc").
		Find(&subs).Error
	return subs, err
}

func (r *QuizSubmissionRepository) ListByStudentAndQuizIDs(ctx context.Context, studentID string, quizIDs []string) ([]model.QuizSubmission, error) {
	if len(quizIDs) == 0 {
		return nil, nil
	}
	var subs []model.QuizSubmission
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND quiz_id IN ?", studentID, quizIDs).
		Find(&subs).Error
	return subs, err
}
