package service

import (
	"context"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProgressService struct {
	Courses     *repository.CourseRepository
	Progress    *repository.LessonProgressRepository
	Enrollments *repository.EnrollmentRepository
	now         func() time.Time
}

func NewProgressService(
	courses *repository.CourseRepository,
	progress *repository.LessonProgressRepository,
	enrollments *repository.EnrollmentRepository,
) *ProgressService {
	return &ProgressService{
		Courses:     courses,
		Progress:    progress,
		Enrollments: enrollments,
		now:         time.Now,
	}
}

type LessonStatus struct {
	LessonID    string     `json:"lessonId"`
	Title       string     `json:"title"`
	VideoURL    string     `json:"videoUrl,omitempty"`
	Content     string     `json:"content,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt"`
}

type CourseContent struct {
	CourseID    string         `json:"courseId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Lessons     []LessonStatus `json:"lessons"`
}

type CourseProgress struct {
	CourseID         string `json:"courseId"`
	TotalLessons     int    `json:"totalLessons"`
	CompletedLessons int    `json:"completedLessons"`
	Percentage       int    `json:"percentage"`
}

type LessonCompletion struct {
	Progress       *model.LessonProgress `json:"progress"`
	CourseProgress *CourseProgress       `json:"courseProgress"`
}

func (s *ProgressService) findCourse(ctx context.Context, courseID string) (*model.Course, error) {
	course, err := s.Courses.FindByID(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	return course, err
}

// GetCourseContent 按大纲顺序返回课时和当前学生的完成状态
func (s *ProgressService) GetCourseContent(ctx context.Context, studentID, courseID string) (*CourseContent, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	rows, err := s.Progress.ListByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	done := make(map[string]model.LessonProgress, len(rows))
	for _, row := range rows {
		done[row.LessonID] = row
	}

	lessons := make([]LessonStatus, len(course.Syllabus))
	for i, l := range course.Syllabus {
		status := LessonStatus{
			LessonID: l.LessonID,
			Title:    l.Title,
			VideoURL: l.VideoURL,
			Content:  l.Content,
		}
		if p, ok := done[l.LessonID]; ok {
			status.IsCompleted = p.IsCompleted
			status.CompletedAt = p.CompletedAt
		}
		lessons[i] = status
	}

	return &CourseContent{
		CourseID:    course.ID,
		Title:       course.Title,
		Description: course.Description,
		Lessons:     lessons,
	}, nil
}

func (s *ProgressService) courseProgress(ctx context.Context, studentID string, course *model.Course) (*CourseProgress, error) {
	lessonIDs := make([]string, len(course.Syllabus))
	for i, l := range course.Syllabus {
		lessonIDs[i] = l.LessonID
	}
	completed, err := s.Progress.CountCompleted(ctx, studentID, course.ID, lessonIDs)
	if err != nil {
		return nil, err
	}

	// 和测验分数同样的取整规则，空大纲为 0
	total := len(course.Syllabus)
	return &CourseProgress{
		CourseID:         course.ID,
		TotalLessons:     total,
		CompletedLessons: int(completed),
		Percentage:       ComputeScore(int(completed), total),
	}, nil
}

// MarkLessonCompleted 可重复调用，返回最新的课程进度
func (s *ProgressService) MarkLessonCompleted(ctx context.Context, studentID, courseID, lessonID string) (*LessonCompletion, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.HasLesson(lessonID) {
		return nil, util.ErrLessonNotFound
	}

	row, err := s.Progress.MarkCompleted(ctx, studentID, courseID, lessonID, s.now())
	if err != nil {
		return nil, err
	}

	progress, err := s.courseProgress(ctx, studentID, course)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("lesson completed",
		zap.String("studentId", studentID),
		zap.String("courseId", courseID),
		zap.String("lessonId", lessonID),
		zap.Int("percentage", progress.Percentage),
	)
	return &LessonCompletion{Progress: row, CourseProgress: progress}, nil
}

func (s *ProgressService) GetCourseProgress(ctx context.Context, studentID, courseID string) (*CourseProgress, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return s.courseProgress(ctx, studentID, course)
}

func (s *ProgressService) GetEnrolledCourses(ctx context.Context, studentID string) ([]model.Enrollment, error) {
	return s.Enrollments.ListActiveByStudent(ctx, studentID)
}
