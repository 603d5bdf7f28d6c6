package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizQuestion 按顺序嵌在 Quiz 里，顺序决定评分时的位置对应关系
type QuizQuestion struct {
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	CourseID  string                            `gorm:"type:varchar(36);not null;index" json:"courseId"`
	LessonID  string                            `gorm:"size:100;not null" json:"lessonId"`
	Title     string                            `gorm:"size:200;not null" json:"title"`
	Questions datatypes.JSONSlice[QuizQuestion] `gorm:"not null" json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizSubmission 创建后不可修改，(quiz, student, course) 唯一
//
// swagger:model QuizSubmission
type QuizSubmission struct {
	ID              string                   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	QuizID          string                   `gorm:"type:varchar(36);not null;uniqueIndex:idx_quiz_submission_unique" json:"quizId"`
	StudentID       string                   `gorm:"type:varchar(36);not null;uniqueIndex:idx_quiz_submission_unique;index" json:"studentId"`
	CourseID        string                   `gorm:"type:varchar(36);not null;uniqueIndex:idx_quiz_submission_unique;index" json:"courseId"`
	SelectedOptions datatypes.JSONSlice[int] `gorm:"not null" json:"selectedOptions"`
	Score           int                      `gorm:"not null" json:"score"`
	SubmittedAt     time.Time                `gorm:"not null" json:"submittedAt"`
	CreatedAt       time.Time                `json:"createdAt"`
}

func (QuizSubmission) TableName() string {
	return "quiz_submissions"
}

func (s *QuizSubmission) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = GenerateUUID()
	}
	return
}
