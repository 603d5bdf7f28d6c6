// Package testutil 提供测试用的内存数据库
package testutil

import (
	"learnhub_backend/internal/config"
	"learnhub_backend/pkg/database"
	"strings"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB 每个测试一个独立的共享缓存内存库，和生产一样经过 database.Open，
// 因此唯一约束冲突同样会被翻译成 gorm.ErrDuplicatedKey
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + name + "?mode=memory&cache=shared&_busy_timeout=5000",
	}, logger.Silent)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// 串行化连接，并发测试靠唯一索引而不是 SQLITE_BUSY 来区分结果
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
