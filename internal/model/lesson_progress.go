package model

import "time"

// LessonProgress 记录学生在某门课程里完成过的课时，同一课时只有一行
type LessonProgress struct {
	UUIDBase
	StudentID   string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_lesson_progress_unique" json:"studentId"`
	CourseID    string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_lesson_progress_unique;index" json:"courseId"`
	LessonID    string     `gorm:"size:100;not null;uniqueIndex:idx_lesson_progress_unique" json:"lessonId"`
	IsCompleted bool       `gorm:"not null;default:false" json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
