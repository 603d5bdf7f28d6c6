package repository

import (
	"context"
	"encoding/json"
	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const quizCacheKeyPrefix = "quiz:"

// QuizRepository 可选地用 Redis 做读穿透缓存，rdb 为 nil 时直接查库。
// 缓存里保存完整的 Quiz（含正确答案），脱敏在 service 层完成。
type QuizRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	TTL   time.Duration
}

func NewQuizRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration) *QuizRepository {
	return &QuizRepository{DB: db, Redis: rdb, TTL: ttl}
}

func quizCacheKey(id string) string {
	return quizCacheKeyPrefix + id
}

func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Create(quiz).Error
}

func (r *QuizRepository) FindByID(ctx context.Context, id string) (*model.Quiz, error) {
	if quiz, ok := r.getCached(ctx, id); ok {
		return quiz, nil
	}

	var quiz model.Quiz
	if err := r.DB.WithContext(ctx).First(&quiz, "id = ?", id).Error; err != nil {
		return nil, err
	}

	r.setCached(ctx, &quiz)
	return &quiz, nil
}

func (r *QuizRepository) Update(ctx context.Context, quiz *model.Quiz) error {
	if err := r.DB.WithContext(ctx).Save(quiz).Error; err != nil {
		return err
	}
	r.evict(ctx, quiz.ID)
	return nil
}

// Delete 只删除 Quiz 本身，已有的提交保留（悬空引用由读路径容忍）
func (r *QuizRepository) Delete(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&model.Quiz{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	r.evict(ctx, id)
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *QuizRepository) ListByCourse(ctx context.Context, courseID string) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at asc").
		Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) FindByIDs(ctx context.Context, ids []string) (map[string]model.Quiz, error) {
	result := make(map[string]model.Quiz, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var quizzes []model.Quiz
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&quizzes).Error; err != nil {
		return nil, err
	}
	for _, q := range quizzes {
		result[q.ID] = q
	}
	return result, nil
}

func (r *QuizRepository) getCached(ctx context.Context, id string) (*model.Quiz, bool) {
	if r.Redis == nil {
		return nil, false
	}

	raw, err := r.Redis.Get(ctx, quizCacheKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("quiz cache read failed", zap.String("quizId", id), zap.Error(err))
		}
		return nil, false
	}

	var quiz model.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		logger.Log.Warn("quiz cache decode failed", zap.String("quizId", id), zap.Error(err))
		return nil, false
	}
	return &quiz, true
}

func (r *QuizRepository) setCached(ctx context.Context, quiz *model.Quiz) {
	if r.Redis == nil {
		return
	}

	raw, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	if err := r.Redis.Set(ctx, quizCacheKey(quiz.ID), raw, r.TTL).Err(); err != nil {
		logger.Log.Warn("quiz cache write failed", zap.String("quizId", quiz.ID), zap.Error(err))
	}
}

func (r *QuizRepository) evict(ctx context.Context, id string) {
	if r.Redis == nil {
		return
	}
	if err := r.Redis.Del(ctx, quizCacheKey(id)).Err(); err != nil {
		logger.Log.Warn("quiz cache evict failed", zap.String("quizId", id), zap.Error(err))
	}
}
