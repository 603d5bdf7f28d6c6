package repository

import (
	"context"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/testutil"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newQuiz(courseID, title string) *model.Quiz {
	return &model.Quiz{
		CourseID: courseID,
		LessonID: "lesson-1",
		Title:    title,
		Questions: []model.QuizQuestion{
			{QuestionText: "Pick the first option", Options: []string{"a", "b"}, CorrectOptionIndex: 0},
		},
	}
}

func TestQuizRepositoryWithoutCache(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewQuizRepository(db, nil, time.Minute)
	ctx := context.Background()

	first := newQuiz("course-1", "first")
	second := newQuiz("course-1", "second")
	other := newQuiz("course-2", "other")
	for _, q := range []*model.Quiz{first, second, other} {
		require.NoError(t, repo.Create(ctx, q))
	}

	got, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, []string{"a", "b"}, got.Questions[0].Options)

	list, err := repo.ListByCourse(ctx, "course-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.Delete(ctx, second.ID))
	err = repo.Delete(ctx, second.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	byID, err := repo.FindByIDs(ctx, []string{first.ID, second.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, byID, 1)
	assert.Contains(t, byID, first.ID)

	_, err = repo.FindByID(ctx, second.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestQuizRepositoryRedisCache(t *testing.T) {
	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	repo := NewQuizRepository(db, rdb, 10*time.Minute)
	ctx := context.Background()

	quiz := newQuiz("course-1", "cached title")
	require.NoError(t, repo.Create(ctx, quiz))
	key := quizCacheKey(quiz.ID)
	assert.False(t, mr.Exists(key))

	// 未命中时回源并写缓存
	got, err := repo.FindByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "cached title", got.Title)
	require.True(t, mr.Exists(key))
	assert.Equal(t, 10*time.Minute, mr.TTL(key))

	// 绕过仓库改库，命中缓存时读到的仍是缓存内容
	require.NoError(t, db.Model(&model.Quiz{}).Where("id = ?", quiz.ID).Update("title", "changed behind cache").Error)
	got, err = repo.FindByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "cached title", got.Title)
	assert.Equal(t, 0, got.Questions[0].CorrectOptionIndex)

	got.Title = "renamed"
	require.NoError(t, repo.Update(ctx, got))
	assert.False(t, mr.Exists(key), "update evicts")

	got, err = repo.FindByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.True(t, mr.Exists(key))

	require.NoError(t, repo.Delete(ctx, quiz.ID))
	assert.False(t, mr.Exists(key), "delete evicts")
	_, err = repo.FindByID(ctx, quiz.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.False(t, mr.Exists(key))

	// 缓存内容损坏时回源并覆盖
	other := newQuiz("course-1", "other quiz")
	require.NoError(t, repo.Create(ctx, other))
	require.NoError(t, mr.Set(quizCacheKey(other.ID), "{not json"))
	got, err = repo.FindByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "other quiz", got.Title)
	raw, err := mr.Get(quizCacheKey(other.ID))
	require.NoError(t, err)
	assert.Contains(t, raw, `"other quiz"`)
}

func TestQuizSubmissionQueries(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewQuizSubmissionRepository(db)
	ctx := context.Background()

	base := time.Now()
	subs := []*model.QuizSubmission{
		{QuizID: "q1", StudentID: "s1", CourseID: "c1", SelectedOptions: []int{0}, Score: 100, SubmittedAt: base},
		{QuizID: "q2", StudentID: "s1", CourseID: "c1", SelectedOptions: []int{1}, Score: 0, SubmittedAt: base.Add(time.Minute)},
		{QuizID: "q1", StudentID: "s2", CourseID: "c1", SelectedOptions: []int{0}, Score: 100, SubmittedAt: base},
	}
	for _, s := range subs {
		require.NoError(t, repo.Create(ctx, s))
	}

	exists, err := repo.Exists(ctx, "q1", "s1", "c1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "q2", "s2", "c1")
	require.NoError(t, err)
	assert.False(t, exists)

	mine, err := repo.ListByStudentAndCourse(ctx, "s1", "c1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "q2", mine[0].QuizID, "newest first")

	byQuiz, err := repo.ListByQuizIDs(ctx, []string{"q1"})
	require.NoError(t, err)
	assert.Len(t, byQuiz, 2)

	none, err := repo.ListByQuizIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	dup := &model.QuizSubmission{QuizID: "q1", StudentID: "s1", CourseID: "c1", SelectedOptions: []int{1}}
	assert.ErrorIs(t, repo.Create(ctx, dup), gorm.ErrDuplicatedKey)
}

func TestLessonProgressMarkCompletedUpserts(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLessonProgressRepository(db)
	ctx := context.Background()

	first := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	row, err := repo.MarkCompleted(ctx, "s1", "c1", "l1", first)
	require.NoError(t, err)
	assert.True(t, row.IsCompleted)

	again, err := repo.MarkCompleted(ctx, "s1", "c1", "l1", first.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, row.ID, again.ID)
	require.NotNil(t, again.CompletedAt)
	assert.True(t, first.Add(time.Minute).Equal(*again.CompletedAt))

	_, err = repo.MarkCompleted(ctx, "s1", "c1", "l2", first)
	require.NoError(t, err)
	_, err = repo.MarkCompleted(ctx, "s2", "c1", "l1", first)
	require.NoError(t, err)

	rows, err := repo.ListByStudentAndCourse(ctx, "s1", "c1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// 已经移出大纲的课时不计数
	n, err := repo.CountCompleted(ctx, "s1", "c1", []string{"l1", "l3"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CountCompleted(ctx, "s1", "c1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	dup := &model.LessonProgress{StudentID: "s1", CourseID: "c1", LessonID: "l1"}
	assert.ErrorIs(t, db.Create(dup).Error, gorm.ErrDuplicatedKey)
}

func TestUserRepositoryFindByIDs(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &model.User{Username: "eve", Email: "eve@example.com", PasswordHash: "x", Role: model.RoleUser}
	require.NoError(t, repo.Create(ctx, u))

	users, err := repo.FindByIDs(ctx, []string{u.ID, "ghost"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "eve", users[u.ID].Username)

	dup := &model.User{Username: "eve2", Email: "eve@example.com", PasswordHash: "x"}
	assert.ErrorIs(t, repo.Create(ctx, dup), gorm.ErrDuplicatedKey)
}
