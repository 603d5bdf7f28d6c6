package repository

import (
	"context"
	"learnhub_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LessonProgressRepository struct {
	DB *gorm.DB
}

func NewLessonProgressRepository(db *gorm.DB) *LessonProgressRepository {
	return &LessonProgressRepository{DB: db}
}

// MarkCompleted 按 (student, course, lesson) 幂等写入，重复标记只刷新完成时间
func (r *LessonProgressRepository) MarkCompleted(ctx context.Context, studentID, courseID, lessonID string, at time.Time) (*model.LessonProgress, error) {
	row := &model.LessonProgress{
		StudentID:   studentID,
		CourseID:    courseID,
		LessonID:    lessonID,
		IsCompleted: true,
		CompletedAt: &at,
	}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_completed", "completed_at", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return nil, err
	}

	// 冲突时主键仍是旧行的，重新读一次
	var stored model.LessonProgress
	err = r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND lesson_id = ?", studentID, courseID, lessonID).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *LessonProgressRepository) ListByStudentAndCourse(ctx context.Context, studentID, courseID string) ([]model.LessonProgress, error) {
	var rows []model.LessonProgress
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Find(&rows).Error
	return rows, err
}

// CountCompleted 只统计仍在大纲里的课时
func (r *LessonProgressRepository) CountCompleted(ctx context.Context, studentID, courseID string, lessonIDs []string) (int64, error) {
	if len(lessonIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LessonProgress{}).
		Where("student_id = ? AND course_id = ? AND is_completed = ? AND lesson_id IN ?", studentID, courseID, true, lessonIDs).
		Count(&count).Error
	return count, err
}
