package service

import (
	"context"
	"encoding/json"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/testutil"
	"learnhub_backend/internal/util"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type quizFixture struct {
	db       *gorm.DB
	svc      *QuizService
	course   *model.Course
	alice    *model.User
	bob      *model.User
	enrolled *repository.EnrollmentRepository
}

func newQuizFixture(t *testing.T) *quizFixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewDB(t)

	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)

	course := &model.Course{
		Title:       "Go 并发编程",
		Description: "goroutine 与 channel",
		Syllabus:    []model.Lesson{{LessonID: "lesson-1", Title: "goroutine"}},
		Tags:        []string{"go"},
		IsActive:    true,
	}
	require.NoError(t, courses.Create(ctx, course))

	alice := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", Role: model.RoleUser}
	bob := &model.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x", Role: model.RoleUser}
	require.NoError(t, users.Create(ctx, alice))
	require.NoError(t, users.Create(ctx, bob))

	svc := NewQuizService(
		repository.NewQuizRepository(db, nil, 0),
		repository.NewQuizSubmissionRepository(db),
		courses,
		enrollments,
		users,
	)
	return &quizFixture{db: db, svc: svc, course: course, alice: alice, bob: bob, enrolled: enrollments}
}

func (f *quizFixture) enroll(t *testing.T, studentID string) {
	t.Helper()
	require.NoError(t, f.enrolled.Create(context.Background(), &model.Enrollment{
		StudentID:     studentID,
		CourseID:      f.course.ID,
		BatchID:       "2026-spring",
		EnrolledAt:    time.Now(),
		Status:        model.EnrollmentActive,
		PaymentStatus: "paid",
	}))
}

func intPtr(i int) *int { return &i }

// questionReqs 生成 n 道题，第 i 题的正确答案是 i%3
func questionReqs(n int) []QuizQuestionReq {
	qs := make([]QuizQuestionReq, n)
	for i := range qs {
		qs[i] = QuizQuestionReq{
			QuestionText:       "Which option is right?",
			Options:            []string{"A", "B", "C"},
			CorrectOptionIndex: intPtr(i % 3),
		}
	}
	return qs
}

func (f *quizFixture) createQuiz(t *testing.T, title string, n int) *model.Quiz {
	t.Helper()
	quiz, err := f.svc.CreateQuiz(context.Background(), CreateQuizReq{
		CourseID:  f.course.ID,
		LessonID:  "lesson-1",
		Title:     title,
		Questions: questionReqs(n),
	})
	require.NoError(t, err)
	return quiz
}

func assertKind(t *testing.T, err error, kind util.ErrorKind) {
	t.Helper()
	var appErr *util.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, kind, appErr.Kind, appErr.Message)
}

func TestCreateQuizValidation(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()

	valid := func() CreateQuizReq {
		return CreateQuizReq{
			CourseID:  f.course.ID,
			LessonID:  "lesson-1",
			Title:     "Goroutines",
			Questions: questionReqs(2),
		}
	}

	cases := map[string]func(r *CreateQuizReq){
		"short title":     func(r *CreateQuizReq) { r.Title = " ab " },
		"missing lesson":  func(r *CreateQuizReq) { r.LessonID = "" },
		"missing course":  func(r *CreateQuizReq) { r.CourseID = "" },
		"no questions":    func(r *CreateQuizReq) { r.Questions = nil },
		"short question":  func(r *CreateQuizReq) { r.Questions[0].QuestionText = "why" },
		"single option":   func(r *CreateQuizReq) { r.Questions[0].Options = []string{"only"} },
		"blank option":    func(r *CreateQuizReq) { r.Questions[0].Options[1] = "  " },
		"index too large": func(r *CreateQuizReq) { r.Questions[0].CorrectOptionIndex = intPtr(3) },
		"negative index":  func(r *CreateQuizReq) { r.Questions[0].CorrectOptionIndex = intPtr(-1) },
		"missing index":   func(r *CreateQuizReq) { r.Questions[1].CorrectOptionIndex = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid()
			mutate(&req)
			_, err := f.svc.CreateQuiz(ctx, req)
			assertKind(t, err, util.KindBadRequest)
		})
	}

	req := valid()
	req.CourseID = "no-such-course"
	_, err := f.svc.CreateQuiz(ctx, req)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	req = valid()
	req.Title = "  Goroutines  "
	quiz, err := f.svc.CreateQuiz(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, quiz.ID)
	assert.Equal(t, "Goroutines", quiz.Title)
	assert.Len(t, quiz.Questions, 2)
	assert.Equal(t, 1, quiz.Questions[1].CorrectOptionIndex)
}

func TestCreateQuizValidationMessages(t *testing.T) {
	f := newQuizFixture(t)

	req := CreateQuizReq{
		CourseID: f.course.ID,
		LessonID: "lesson-1",
		Title:    "ab",
		Questions: []QuizQuestionReq{
			{QuestionText: "Pick one", Options: []string{"A", " "}, CorrectOptionIndex: intPtr(2)},
			{QuestionText: "Pick another", Options: []string{"A", "B"}},
		},
	}
	_, err := f.svc.CreateQuiz(context.Background(), req)
	assertKind(t, err, util.KindBadRequest)

	msg := err.Error()
	assert.Contains(t, msg, "Validation error: ")
	assert.Contains(t, msg, "title must be at least 3 characters")
	assert.Contains(t, msg, "questions[0].options[1] must not be blank")
	assert.Contains(t, msg, "questions[0].correctOptionIndex must reference one of the options")
	assert.Contains(t, msg, "questions[1].correctOptionIndex is required")

	long := CreateQuizReq{CourseID: f.course.ID, LessonID: "lesson-1", Title: strings.Repeat("题", 201), Questions: questionReqs(1)}
	_, err = f.svc.CreateQuiz(context.Background(), long)
	assertKind(t, err, util.KindBadRequest)
	assert.Contains(t, err.Error(), "title must be at most 200 characters")

	long.Title = strings.Repeat("题", 200)
	_, err = f.svc.CreateQuiz(context.Background(), long)
	require.NoError(t, err)
}

func TestGetQuizRedactsCorrectAnswers(t *testing.T) {
	f := newQuizFixture(t)
	quiz := f.createQuiz(t, "Channels", 3)

	public, err := f.svc.GetQuiz(context.Background(), quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, public.QuizID)
	require.Len(t, public.Questions, 3)

	body, err := json.Marshal(public)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "correctOptionIndex")

	_, err = f.svc.GetQuiz(context.Background(), "missing")
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestSubmitQuizGradesAndRounds(t *testing.T) {
	f := newQuizFixture(t)
	quiz := f.createQuiz(t, "Eight questions", 8)

	// 正确答案是 0,1,2,0,1,2,0,1，前三题答对
	selected := []int{0, 1, 2, 2, 2, 0, 1, 2}
	result, err := f.svc.SubmitQuiz(context.Background(), quiz.ID, f.alice.ID, selected)
	require.NoError(t, err)

	assert.Equal(t, 3, result.CorrectAnswers)
	assert.Equal(t, 8, result.TotalQuestions)
	assert.Equal(t, 38, result.Score)
	assert.Equal(t, 38, result.Submission.Score)
	assert.Equal(t, f.course.ID, result.Submission.CourseID)

	var stored model.QuizSubmission
	require.NoError(t, f.db.First(&stored, "id = ?", result.Submission.ID).Error)
	assert.Equal(t, []int(selected), []int(stored.SelectedOptions))
	assert.Equal(t, 38, stored.Score)
}

func TestSubmitQuizRejectsBadPayloadWithoutWriting(t *testing.T) {
	f := newQuizFixture(t)
	quiz := f.createQuiz(t, "Three questions", 3)
	ctx := context.Background()

	_, err := f.svc.SubmitQuiz(ctx, quiz.ID, f.alice.ID, nil)
	assert.ErrorIs(t, err, util.ErrSelectedOptions)

	_, err = f.svc.SubmitQuiz(ctx, quiz.ID, f.alice.ID, []int{0, 1})
	assert.ErrorIs(t, err, util.ErrAnswerCountMismatch)

	_, err = f.svc.SubmitQuiz(ctx, quiz.ID, f.alice.ID, []int{})
	assert.ErrorIs(t, err, util.ErrAnswerCountMismatch)

	_, err = f.svc.SubmitQuiz(ctx, "missing", f.alice.ID, []int{0})
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	var count int64
	require.NoError(t, f.db.Model(&model.QuizSubmission{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubmitQuizTwiceConflicts(t *testing.T) {
	f := newQuizFixture(t)
	quiz := f.createQuiz(t, "Two questions", 2)
	ctx := context.Background()

	first, err := f.svc.SubmitQuiz(ctx, quiz.ID, f.alice.ID, []int{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 50, first.Score)

	_, err = f.svc.SubmitQuiz(ctx, quiz.ID, f.alice.ID, []int{0, 1})
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)
	assertKind(t, err, util.KindConflict)

	// 长度不对也一样是重复提交
	_, err = f.svc.SubmitQuiz(ctx, quiz.ID, f.alice.ID, []int{0})
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)

	review, err := f.svc.GetQuizSubmission(ctx, quiz.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, review.Score)

	// 其他学生不受影响
	_, err = f.svc.SubmitQuiz(ctx, quiz.ID, f.bob.ID, []int{0, 1})
	require.NoError(t, err)
}

func TestSubmitQuizConcurrentOnlyOneWins(t *testing.T) {
	f := newQuizFixture(t)
	quiz := f.createQuiz(t, "Race", 2)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.SubmitQuiz(context.Background(), quiz.ID, f.alice.ID, []int{0, 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, util.ErrAlreadySubmitted):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)

	var n int64
	require.NoError(t, f.db.Model(&model.QuizSubmission{}).
		Where("quiz_id = ? AND student_id = ?", quiz.ID, f.alice.ID).
		Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestGetQuizSubmissionRevealsAnswersAfterSubmit(t *testing.T) {
	f := newQuizFixture(t)
	quiz := f.createQuiz(t, "Review", 3)
	ctx := context.Background()

	_, err := f.svc.GetQuizSubmission(ctx, quiz.ID, f.alice.ID)
	assert.ErrorIs(t, err, util.ErrSubmissionNotFound)

	_, err = f.svc.SubmitQuiz(ctx, quiz.ID, f.alice.ID, []int{0, 0, 2})
	require.NoError(t, err)

	review, err := f.svc.GetQuizSubmission(ctx, quiz.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, review.CorrectAnswers)
	assert.Equal(t, 67, review.Score)
	require.Len(t, review.Questions, 3)
	assert.True(t, review.Questions[0].IsCorrect)
	assert.False(t, review.Questions[1].IsCorrect)
	assert.Equal(t, 1, review.Questions[1].CorrectOptionIndex)
	assert.Equal(t, 0, *review.Questions[1].SelectedOption)

	require.NoError(t, f.svc.DeleteQuiz(ctx, quiz.ID))
	_, err = f.svc.GetQuizSubmission(ctx, quiz.ID, f.alice.ID)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestGetQuizzesForCourseMarksSubmitted(t *testing.T) {
	f := newQuizFixture(t)
	first := f.createQuiz(t, "First quiz", 2)
	second := f.createQuiz(t, "Second quiz", 2)
	ctx := context.Background()

	_, err := f.svc.SubmitQuiz(ctx, first.ID, f.alice.ID, []int{0, 1})
	require.NoError(t, err)

	items, err := f.svc.GetQuizzesForCourse(ctx, f.course.ID, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byID := map[string]CourseQuizItem{}
	for _, it := range items {
		byID[it.QuizID] = it
	}

	done := byID[first.ID]
	require.NotNil(t, done.IsSubmitted)
	assert.True(t, *done.IsSubmitted)
	require.NotNil(t, done.Submission)
	assert.Equal(t, 100, done.Submission.Score)
	assert.Equal(t, 2, done.Submission.CorrectAnswers)

	todo := byID[second.ID]
	require.NotNil(t, todo.IsSubmitted)
	assert.False(t, *todo.IsSubmitted)
	assert.Nil(t, todo.Submission)

	body, err := json.Marshal(items)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "correctOptionIndex")
	assert.NotContains(t, string(body), "selectedOptions")

	_, err = f.svc.GetQuizzesForCourse(ctx, "missing", f.alice.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestGetMyQuizSubmissions(t *testing.T) {
	f := newQuizFixture(t)
	kept := f.createQuiz(t, "Kept quiz", 2)
	removed := f.createQuiz(t, "Removed quiz", 2)
	ctx := context.Background()

	_, err := f.svc.GetMyQuizSubmissions(ctx, f.alice.ID, f.course.ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
	assertKind(t, err, util.KindForbidden)

	f.enroll(t, f.alice.ID)

	_, err = f.svc.SubmitQuiz(ctx, kept.ID, f.alice.ID, []int{0, 0})
	require.NoError(t, err)
	_, err = f.svc.SubmitQuiz(ctx, removed.ID, f.alice.ID, []int{0, 1})
	require.NoError(t, err)

	items, err := f.svc.GetMyQuizSubmissions(ctx, f.alice.ID, f.course.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, f.svc.DeleteQuiz(ctx, removed.ID))

	items, err = f.svc.GetMyQuizSubmissions(ctx, f.alice.ID, f.course.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, kept.ID, items[0].QuizID)
	assert.Equal(t, "Kept quiz", items[0].QuizTitle)
	assert.Equal(t, 1, items[0].CorrectAnswers)
	assert.Equal(t, 50, items[0].Score)
}

func TestGetAdminQuizzesForCourse(t *testing.T) {
	f := newQuizFixture(t)
	quiz := f.createQuiz(t, "Admin view", 2)
	empty := f.createQuiz(t, "Nobody took this", 2)
	ctx := context.Background()

	_, err := f.svc.SubmitQuiz(ctx, quiz.ID, f.alice.ID, []int{0, 1})
	require.NoError(t, err)
	_, err = f.svc.SubmitQuiz(ctx, quiz.ID, f.bob.ID, []int{1, 1})
	require.NoError(t, err)

	reports, err := f.svc.GetAdminQuizzesForCourse(ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	byID := map[string]AdminQuizReport{}
	for _, r := range reports {
		byID[r.Quiz.ID] = r
	}

	report := byID[quiz.ID]
	require.Len(t, report.Quiz.Questions, 2)
	require.Len(t, report.Submissions, 2)

	scores := map[string]AdminSubmissionReport{}
	for _, s := range report.Submissions {
		scores[s.Student.Username] = s
	}
	assert.Equal(t, 100, scores["alice"].Score)
	assert.Equal(t, "alice@example.com", scores["alice"].Student.Email)
	assert.Equal(t, 50, scores["bob"].Score)
	assert.Equal(t, 1, scores["bob"].CorrectAnswers)
	require.Len(t, scores["bob"].Answers, 2)
	assert.False(t, scores["bob"].Answers[0].IsCorrect)
	assert.True(t, scores["bob"].Answers[1].IsCorrect)

	assert.Empty(t, byID[empty.ID].Submissions)
}

func TestUpdateAndDeleteQuiz(t *testing.T) {
	f := newQuizFixture(t)
	quiz := f.createQuiz(t, "Original title", 2)
	ctx := context.Background()

	title := "Renamed quiz"
	updated, err := f.svc.UpdateQuiz(ctx, quiz.ID, UpdateQuizReq{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Len(t, updated.Questions, 2)

	bad := []QuizQuestionReq{{QuestionText: "too few options", Options: []string{"A"}, CorrectOptionIndex: intPtr(0)}}
	_, err = f.svc.UpdateQuiz(ctx, quiz.ID, UpdateQuizReq{Questions: &bad})
	assertKind(t, err, util.KindBadRequest)

	short := " ab "
	_, err = f.svc.UpdateQuiz(ctx, quiz.ID, UpdateQuizReq{Title: &short})
	assertKind(t, err, util.KindBadRequest)

	sameCourse := f.course.ID
	_, err = f.svc.UpdateQuiz(ctx, quiz.ID, UpdateQuizReq{CourseID: &sameCourse, Title: &title})
	require.NoError(t, err)

	_, err = f.svc.UpdateQuiz(ctx, "missing", UpdateQuizReq{Title: &title})
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	require.NoError(t, f.svc.DeleteQuiz(ctx, quiz.ID))
	assert.ErrorIs(t, f.svc.DeleteQuiz(ctx, quiz.ID), util.ErrQuizNotFound)

	_, err = f.svc.GetQuiz(ctx, quiz.ID)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestUpdateQuizCannotMoveCourseAfterSubmission(t *testing.T) {
	f := newQuizFixture(t)
	quiz := f.createQuiz(t, "Pinned to course", 2)
	ctx := context.Background()

	other := &model.Course{Title: "Rust 入门", Description: "所有权", IsActive: true}
	require.NoError(t, repository.NewCourseRepository(f.db).Create(ctx, other))

	_, err := f.svc.SubmitQuiz(ctx, quiz.ID, f.alice.ID, []int{0, 1})
	require.NoError(t, err)

	_, err = f.svc.UpdateQuiz(ctx, quiz.ID, UpdateQuizReq{CourseID: &other.ID})
	assert.ErrorIs(t, err, util.ErrQuizCourseImmutable)
	assertKind(t, err, util.KindBadRequest)

	stored, err := f.svc.Quizzes.FindByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, f.course.ID, stored.CourseID)

	_, err = f.svc.SubmitQuiz(ctx, quiz.ID, f.alice.ID, []int{1, 1})
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)

	var n int64
	require.NoError(t, f.db.Model(&model.QuizSubmission{}).
		Where("quiz_id = ? AND student_id = ?", quiz.ID, f.alice.ID).
		Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

// 四道题的正确答案依次是 1,0,2,0
func TestSubmitQuizScoreTable(t *testing.T) {
	cases := []struct {
		name     string
		selected []int
		correct  int
		score    int
	}{
		{"all correct", []int{1, 0, 2, 0}, 4, 100},
		{"half correct", []int{0, 0, 2, 1}, 2, 50},
		{"one correct", []int{1, 1, 1, 1}, 1, 25},
	}

	f := newQuizFixture(t)
	quiz, err := f.svc.CreateQuiz(context.Background(), CreateQuizReq{
		CourseID: f.course.ID,
		LessonID: "lesson-1",
		Title:    "Score table",
		Questions: []QuizQuestionReq{
			{QuestionText: "Question one", Options: []string{"A", "B", "C"}, CorrectOptionIndex: intPtr(1)},
			{QuestionText: "Question two", Options: []string{"A", "B", "C"}, CorrectOptionIndex: intPtr(0)},
			{QuestionText: "Question three", Options: []string{"A", "B", "C"}, CorrectOptionIndex: intPtr(2)},
			{QuestionText: "Question four", Options: []string{"A", "B", "C"}, CorrectOptionIndex: intPtr(0)},
		},
	})
	require.NoError(t, err)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			student := &model.User{Username: tc.name, Email: strings.ReplaceAll(tc.name, " ", ".") + "@example.com", PasswordHash: "x", Role: model.RoleUser}
			require.NoError(t, repository.NewUserRepository(f.db).Create(context.Background(), student))

			result, err := f.svc.SubmitQuiz(context.Background(), quiz.ID, student.ID, tc.selected)
			require.NoError(t, err)
			assert.Equal(t, tc.correct, result.CorrectAnswers)
			assert.Equal(t, 4, result.TotalQuestions)
			assert.Equal(t, tc.score, result.Score)
		})
	}
}
