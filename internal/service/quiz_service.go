package service

import (
	"context"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/tracing"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CourseLookup 确认课程存在
type CourseLookup interface {
	Exists(ctx context.Context, courseID string) (bool, error)
}

// EnrollmentChecker 判断学生在课程中是否有有效选课
type EnrollmentChecker interface {
	HasActive(ctx context.Context, studentID, courseID string) (bool, error)
}

// StudentDirectory 批量查询学生身份
type StudentDirectory interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]model.User, error)
}

type QuizService struct {
	Quizzes     *repository.QuizRepository
	Submissions *repository.QuizSubmissionRepository
	Courses     CourseLookup
	Enrollments EnrollmentChecker
	Students    StudentDirectory
	now         func() time.Time
}

func NewQuizService(
	quizzes *repository.QuizRepository,
	submissions *repository.QuizSubmissionRepository,
	courses CourseLookup,
	enrollments EnrollmentChecker,
	students StudentDirectory,
) *QuizService {
	return &QuizService{
		Quizzes:     quizzes,
		Submissions: submissions,
		Courses:     courses,
		Enrollments: enrollments,
		Students:    students,
		now:         time.Now,
	}
}

type QuizQuestionReq struct {
	QuestionText       string   `json:"questionText" binding:"required,trimmin=5"`
	Options            []string `json:"options" binding:"required,min=2,dive,trimmin=1"`
	CorrectOptionIndex *int     `json:"correctOptionIndex" binding:"required"`
}

type CreateQuizReq struct {
	CourseID  string            `json:"courseId" binding:"required,trimmin=1"`
	LessonID  string            `json:"lessonId" binding:"required,trimmin=1,max=100"`
	Title     string            `json:"title" binding:"required,trimmin=3,trimmax=200"`
	Questions []QuizQuestionReq `json:"questions" binding:"required,min=1,dive"`
}

// UpdateQuizReq 只合并非 nil 字段。courseId 只允许原样传回，测验创建后不能换课程
type UpdateQuizReq struct {
	CourseID  *string            `json:"courseId"`
	LessonID  *string            `json:"lessonId" binding:"omitnil,trimmin=1,max=100"`
	Title     *string            `json:"title" binding:"omitnil,trimmin=3,trimmax=200"`
	Questions *[]QuizQuestionReq `json:"questions" binding:"omitnil,min=1,dive"`
}

func toModelQuestions(reqs []QuizQuestionReq) []model.QuizQuestion {
	questions := make([]model.QuizQuestion, len(reqs))
	for i, q := range reqs {
		opts := make([]string, len(q.Options))
		for j, o := range q.Options {
			opts[j] = strings.TrimSpace(o)
		}
		questions[i] = model.QuizQuestion{
			QuestionText:       strings.TrimSpace(q.QuestionText),
			Options:            opts,
			CorrectOptionIndex: *q.CorrectOptionIndex,
		}
	}
	return questions
}

func (s *QuizService) ensureCourse(ctx context.Context, courseID string) error {
	ok, err := s.Courses.Exists(ctx, courseID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrCourseNotFound
	}
	return nil
}

func (s *QuizService) findQuiz(ctx context.Context, quizID string) (*model.Quiz, error) {
	quiz, err := s.Quizzes.FindByID(ctx, quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	return quiz, err
}

// CreateQuiz 管理员创建测验，返回值包含正确答案
func (s *QuizService) CreateQuiz(ctx context.Context, req CreateQuizReq) (*model.Quiz, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if err := s.ensureCourse(ctx, req.CourseID); err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		CourseID:  req.CourseID,
		LessonID:  strings.TrimSpace(req.LessonID),
		Title:     strings.TrimSpace(req.Title),
		Questions: toModelQuestions(req.Questions),
	}
	if err := s.Quizzes.Create(ctx, quiz); err != nil {
		return nil, err
	}

	logger.Log.Info("quiz created",
		zap.String("quizId", quiz.ID),
		zap.String("courseId", quiz.CourseID),
		zap.Int("questions", len(quiz.Questions)),
	)
	return quiz, nil
}

// UpdateQuiz 不允许迁移课程：提交记录按 (quiz, student, course) 唯一，换课程会让已提交的学生再交一次
func (s *QuizService) UpdateQuiz(ctx context.Context, quizID string, req UpdateQuizReq) (*model.Quiz, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	quiz, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if req.CourseID != nil && *req.CourseID != quiz.CourseID {
		return nil, util.ErrQuizCourseImmutable
	}
	if req.LessonID != nil {
		quiz.LessonID = strings.TrimSpace(*req.LessonID)
	}
	if req.Title != nil {
		quiz.Title = strings.TrimSpace(*req.Title)
	}
	if req.Questions != nil {
		quiz.Questions = toModelQuestions(*req.Questions)
	}

	if err := s.Quizzes.Update(ctx, quiz); err != nil {
		return nil, err
	}

	logger.Log.Info("quiz updated", zap.String("quizId", quiz.ID))
	return quiz, nil
}

// DeleteQuiz 不级联删除提交记录
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID string) error {
	err := s.Quizzes.Delete(ctx, quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrQuizNotFound
	}
	if err != nil {
		return err
	}

	logger.Log.Info("quiz deleted", zap.String("quizId", quizID))
	return nil
}

// PublicQuestion 是学生作答前看到的题目，类型上就没有正确答案字段
type PublicQuestion struct {
	QuestionText string   `json:"questionText"`
	Options      []string `json:"options"`
}

type PublicQuiz struct {
	QuizID    string           `json:"quizId"`
	CourseID  string           `json:"courseId"`
	LessonID  string           `json:"lessonId"`
	Title     string           `json:"title"`
	Questions []PublicQuestion `json:"questions"`
}

func toPublicQuiz(quiz *model.Quiz) *PublicQuiz {
	questions := make([]PublicQuestion, len(quiz.Questions))
	for i, q := range quiz.Questions {
		questions[i] = PublicQuestion{
			QuestionText: q.QuestionText,
			Options:      q.Options,
		}
	}
	return &PublicQuiz{
		QuizID:    quiz.ID,
		CourseID:  quiz.CourseID,
		LessonID:  quiz.LessonID,
		Title:     quiz.Title,
		Questions: questions,
	}
}

// GetQuiz 对任何调用方都返回脱敏后的题目
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (*PublicQuiz, error) {
	quiz, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return toPublicQuiz(quiz), nil
}

type SubmissionSummary struct {
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

type CourseQuizItem struct {
	QuizID         string             `json:"quizId"`
	LessonID       string             `json:"lessonId"`
	Title          string             `json:"title"`
	TotalQuestions int                `json:"totalQuestions"`
	IsSubmitted    *bool              `json:"isSubmitted,omitempty"`
	Submission     *SubmissionSummary `json:"submission,omitempty"`
}

// GetQuizzesForCourse 列出课程测验；studentID 非空时附带该学生的提交摘要（不含作答和答案）
func (s *QuizService) GetQuizzesForCourse(ctx context.Context, courseID, studentID string) ([]CourseQuizItem, error) {
	if err := s.ensureCourse(ctx, courseID); err != nil {
		return nil, err
	}

	quizzes, err := s.Quizzes.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	submitted := map[string]model.QuizSubmission{}
	if studentID != "" {
		ids := make([]string, len(quizzes))
		for i, q := range quizzes {
			ids[i] = q.ID
		}
		subs, err := s.Submissions.ListByStudentAndQuizIDs(ctx, studentID, ids)
		if err != nil {
			return nil, err
		}
		for _, sub := range subs {
			submitted[sub.QuizID] = sub
		}
	}

	items := make([]CourseQuizItem, len(quizzes))
	for i, q := range quizzes {
		item := CourseQuizItem{
			QuizID:         q.ID,
			LessonID:       q.LessonID,
			Title:          q.Title,
			TotalQuestions: len(q.Questions),
		}
		if studentID != "" {
			sub, ok := submitted[q.ID]
			isSubmitted := ok
			item.IsSubmitted = &isSubmitted
			if ok {
				item.Submission = &SubmissionSummary{
					Score:          sub.Score,
					CorrectAnswers: CountCorrect(q.Questions, sub.SelectedOptions),
					TotalQuestions: len(q.Questions),
					SubmittedAt:    sub.SubmittedAt,
				}
			}
		}
		items[i] = item
	}
	return items, nil
}

type SubmitQuizResult struct {
	Submission     *model.QuizSubmission `json:"submission"`
	Score          int                   `json:"score"`
	CorrectAnswers int                   `json:"correctAnswers"`
	TotalQuestions int                   `json:"totalQuestions"`
}

// SubmitQuiz 评分并记录唯一一次提交。
// selected 为 nil 表示请求里没有 selectedOptions。已提交过的学生再次提交一律返回 Conflict；
// 预检查只是提前返回，真正的保证来自唯一索引和重复键翻译。
func (s *QuizService) SubmitQuiz(ctx context.Context, quizID, studentID string, selected []int) (result *SubmitQuizResult, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "QuizService.SubmitQuiz")
	span.SetAttributes(attribute.String("quiz.id", quizID), attribute.String("student.id", studentID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if selected == nil {
		monitoring.RecordSubmission(monitoring.OutcomeRejected, 0)
		return nil, util.ErrSelectedOptions
	}

	quiz, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	exists, err := s.Submissions.Exists(ctx, quiz.ID, studentID, quiz.CourseID)
	if err != nil {
		return nil, err
	}
	if exists {
		monitoring.RecordSubmission(monitoring.OutcomeDuplicate, 0)
		return nil, util.ErrAlreadySubmitted
	}

	total := len(quiz.Questions)
	if len(selected) != total {
		monitoring.RecordSubmission(monitoring.OutcomeRejected, 0)
		return nil, util.ErrAnswerCountMismatch
	}

	correct := CountCorrect(quiz.Questions, selected)
	score := ComputeScore(correct, total)

	submission := &model.QuizSubmission{
		QuizID:          quiz.ID,
		StudentID:       studentID,
		CourseID:        quiz.CourseID,
		SelectedOptions: append([]int(nil), selected...),
		Score:           score,
		SubmittedAt:     s.now(),
	}
	if err := s.Submissions.Create(ctx, submission); err != nil {
		if database.IsDuplicateKey(err) {
			logger.Log.Info("duplicate quiz submission rejected by unique index",
				zap.String("quizId", quiz.ID),
				zap.String("studentId", studentID),
			)
			monitoring.RecordSubmission(monitoring.OutcomeDuplicate, 0)
			return nil, util.ErrAlreadySubmitted.Wrap(err)
		}
		return nil, err
	}

	monitoring.RecordSubmission(monitoring.OutcomeAccepted, score)
	span.SetAttributes(attribute.Int("quiz.score", score))
	logger.Log.Info("quiz submitted",
		zap.String("quizId", quiz.ID),
		zap.String("studentId", studentID),
		zap.Int("score", score),
	)

	return &SubmitQuizResult{
		Submission:     submission,
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: total,
	}, nil
}

type SubmissionReview struct {
	SubmissionID   string           `json:"submissionId"`
	QuizID         string           `json:"quizId"`
	CourseID       string           `json:"courseId"`
	LessonID       string           `json:"lessonId"`
	Title          string           `json:"title"`
	Score          int              `json:"score"`
	CorrectAnswers int              `json:"correctAnswers"`
	TotalQuestions int              `json:"totalQuestions"`
	SubmittedAt    time.Time        `json:"submittedAt"`
	Questions      []QuestionReview `json:"questions"`
}

// GetQuizSubmission 唯一向学生展示正确答案的读路径，前提是该学生已提交过这份测验
func (s *QuizService) GetQuizSubmission(ctx context.Context, quizID, studentID string) (*SubmissionReview, error) {
	sub, err := s.Submissions.FindByQuizAndStudent(ctx, quizID, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}

	quiz, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	reviews, correct := ReviewAnswers(quiz.Questions, sub.SelectedOptions)
	return &SubmissionReview{
		SubmissionID:   sub.ID,
		QuizID:         quiz.ID,
		CourseID:       quiz.CourseID,
		LessonID:       quiz.LessonID,
		Title:          quiz.Title,
		Score:          sub.Score,
		CorrectAnswers: correct,
		TotalQuestions: len(quiz.Questions),
		SubmittedAt:    sub.SubmittedAt,
		Questions:      reviews,
	}, nil
}

type MySubmissionItem struct {
	SubmissionID   string    `json:"submissionId"`
	QuizID         string    `json:"quizId"`
	QuizTitle      string    `json:"quizTitle"`
	LessonID       string    `json:"lessonId"`
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// GetMyQuizSubmissions 需要有效选课；测验已删除的提交直接跳过
func (s *QuizService) GetMyQuizSubmissions(ctx context.Context, studentID, courseID string) ([]MySubmissionItem, error) {
	enrolled, err := s.Enrollments.HasActive(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, util.ErrNotEnrolled
	}

	subs, err := s.Submissions.ListByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	quizIDs := make([]string, len(subs))
	for i, sub := range subs {
		quizIDs[i] = sub.QuizID
	}
	quizzes, err := s.Quizzes.FindByIDs(ctx, quizIDs)
	if err != nil {
		return nil, err
	}

	items := make([]MySubmissionItem, 0, len(subs))
	for _, sub := range subs {
		quiz, ok := quizzes[sub.QuizID]
		if !ok {
			continue
		}
		items = append(items, MySubmissionItem{
			SubmissionID:   sub.ID,
			QuizID:         quiz.ID,
			QuizTitle:      quiz.Title,
			LessonID:       quiz.LessonID,
			Score:          sub.Score,
			CorrectAnswers: CountCorrect(quiz.Questions, sub.SelectedOptions),
			TotalQuestions: len(quiz.Questions),
			SubmittedAt:    sub.SubmittedAt,
		})
	}
	return items, nil
}

type StudentIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type AdminSubmissionReport struct {
	SubmissionID   string           `json:"submissionId"`
	Student        StudentIdentity  `json:"student"`
	Score          int              `json:"score"`
	CorrectAnswers int              `json:"correctAnswers"`
	TotalQuestions int              `json:"totalQuestions"`
	SubmittedAt    time.Time        `json:"submittedAt"`
	Answers        []QuestionReview `json:"answers"`
}

type AdminQuizReport struct {
	Quiz        model.Quiz              `json:"quiz"`
	Submissions []AdminSubmissionReport `json:"submissions"`
}

// GetAdminQuizzesForCourse 只读报表。提交和学生身份都是批量查询，查询次数与提交数量无关。
func (s *QuizService) GetAdminQuizzesForCourse(ctx context.Context, courseID string) ([]AdminQuizReport, error) {
	if err := s.ensureCourse(ctx, courseID); err != nil {
		return nil, err
	}

	quizzes, err := s.Quizzes.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	quizIDs := make([]string, len(quizzes))
	for i, q := range quizzes {
		quizIDs[i] = q.ID
	}
	subs, err := s.Submissions.ListByQuizIDs(ctx, quizIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	studentIDs := make([]string, 0, len(subs))
	byQuiz := make(map[string][]model.QuizSubmission, len(quizzes))
	for _, sub := range subs {
		byQuiz[sub.QuizID] = append(byQuiz[sub.QuizID], sub)
		if !seen[sub.StudentID] {
			seen[sub.StudentID] = true
			studentIDs = append(studentIDs, sub.StudentID)
		}
	}

	students, err := s.Students.FindByIDs(ctx, studentIDs)
	if err != nil {
		return nil, err
	}

	reports := make([]AdminQuizReport, len(quizzes))
	for i, q := range quizzes {
		quizSubs := byQuiz[q.ID]
		rows := make([]AdminSubmissionReport, len(quizSubs))
		for j, sub := range quizSubs {
			answers, correct := ReviewAnswers(q.Questions, sub.SelectedOptions)
			identity := StudentIdentity{ID: sub.StudentID}
			if u, ok := students[sub.StudentID]; ok {
				identity.Username = u.Username
				identity.Email = u.Email
			}
			rows[j] = AdminSubmissionReport{
				SubmissionID:   sub.ID,
				Student:        identity,
				Score:          sub.Score,
				CorrectAnswers: correct,
				TotalQuestions: len(q.Questions),
				SubmittedAt:    sub.SubmittedAt,
				Answers:        answers,
			}
		}
		reports[i] = AdminQuizReport{Quiz: q, Submissions: rows}
	}
	return reports, nil
}
