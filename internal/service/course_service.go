package service

import (
	"context"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CourseService struct {
	CourseRepo *repository.CourseRepository
}

func NewCourseService(courseRepo *repository.CourseRepository) *CourseService {
	return &CourseService{CourseRepo: courseRepo}
}

type LessonReq struct {
	LessonID string `json:"lessonId" binding:"required"`
	Title    string `json:"title" binding:"required"`
	VideoURL string `json:"videoUrl"`
	Content  string `json:"content"`
}

type CreateCourseReq struct {
	Title       string      `json:"title" binding:"required,min=3,max=255"`
	Description string      `json:"description" binding:"required"`
	Syllabus    []LessonReq `json:"syllabus" binding:"dive"`
	Price       float64     `json:"price" binding:"min=0"`
	Category    string      `json:"category"`
	Tags        []string    `json:"tags"`
}

func (s *CourseService) CreateCourse(ctx context.Context, instructorID string, req CreateCourseReq) (*model.Course, error) {
	seen := make(map[string]bool, len(req.Syllabus))
	syllabus := make([]model.Lesson, 0, len(req.Syllabus))
	for _, l := range req.Syllabus {
		if seen[l.LessonID] {
			return nil, util.NewBadRequest("Validation error: duplicate lessonId " + l.LessonID)
		}
		seen[l.LessonID] = true
		syllabus = append(syllabus, model.Lesson{
			LessonID: l.LessonID,
			Title:    strings.TrimSpace(l.Title),
			VideoURL: l.VideoURL,
			Content:  l.Content,
		})
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	course := &model.Course{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		InstructorID: instructorID,
		Syllabus:     syllabus,
		Price:        req.Price,
		Category:     req.Category,
		Tags:         tags,
		IsActive:     true,
	}
	if err := s.CourseRepo.Create(ctx, course); err != nil {
		return nil, err
	}

	logger.Log.Info("course created", zap.String("courseId", course.ID), zap.Int("lessons", len(syllabus)))
	return course, nil
}

func (s *CourseService) GetCourse(ctx context.Context, courseID string) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	return course, err
}
