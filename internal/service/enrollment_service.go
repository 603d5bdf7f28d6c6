package service

import (
	"context"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EnrollmentService struct {
	EnrollmentRepo *repository.EnrollmentRepository
	Courses        CourseLookup
}

func NewEnrollmentService(enrollmentRepo *repository.EnrollmentRepository, courses CourseLookup) *EnrollmentService {
	return &EnrollmentService{
		EnrollmentRepo: enrollmentRepo,
		Courses:        courses,
	}
}

type EnrollReq struct {
	CourseID      string `json:"courseId" binding:"required"`
	BatchID       string `json:"batchId" binding:"required"`
	PaymentStatus string `json:"paymentStatus" binding:"omitempty,oneof=paid pending free"`
}

// Enroll 和测验提交一样：先查重，再靠唯一索引兜底
func (s *EnrollmentService) Enroll(ctx context.Context, studentID string, req EnrollReq) (*model.Enrollment, error) {
	ok, err := s.Courses.Exists(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrCourseNotFound
	}

	_, err = s.EnrollmentRepo.Find(ctx, studentID, req.CourseID, req.BatchID)
	if err == nil {
		return nil, util.ErrAlreadyEnrolled
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	payment := req.PaymentStatus
	if payment == "" {
		payment = "paid"
	}

	enrollment := &model.Enrollment{
		StudentID:     studentID,
		CourseID:      req.CourseID,
		BatchID:       req.BatchID,
		EnrolledAt:    time.Now(),
		Status:        model.EnrollmentActive,
		PaymentStatus: payment,
	}
	if err := s.EnrollmentRepo.Create(ctx, enrollment); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, util.ErrAlreadyEnrolled.Wrap(err)
		}
		return nil, err
	}

	logger.Log.Info("student enrolled",
		zap.String("studentId", studentID),
		zap.String("courseId", req.CourseID),
		zap.String("batchId", req.BatchID),
	)
	return enrollment, nil
}
