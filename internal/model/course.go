package model

import "gorm.io/datatypes"

// Lesson 嵌在课程大纲里，没有单独的表
type Lesson struct {
	LessonID string `json:"lessonId"`
	Title    string `json:"title"`
	VideoURL string `json:"videoUrl,omitempty"`
	Content  string `json:"content,omitempty"`
}

// swagger:model Course
type Course struct {
	UUIDBase
	Title        string                      `gorm:"size:255;not null;index" json:"title"`
	Description  string                      `gorm:"type:text;not null" json:"description"`
	InstructorID string                      `gorm:"type:varchar(36);index" json:"instructorId"`
	Syllabus     datatypes.JSONSlice[Lesson] `json:"syllabus"`
	Price        float64                     `gorm:"not null;index" json:"price"`
	Category     string                      `gorm:"size:100;index" json:"category"`
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	IsActive     bool                        `gorm:"default:true" json:"isActive"`
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) HasLesson(lessonID string) bool {
	for _, l := range c.Syllabus {
		if l.LessonID == lessonID {
			return true
		}
	}
	return false
}
