package database

import (
	"fmt"
	"time"

	"github.com/wfunc/essay-arena/internal/logger"
	"github.com/wfunc/essay-arena/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 文件型SQLite在多进程启动时需要互斥迁移
	if dbPath := sqliteFilePath(db); dbPath != "" {
		CleanupStaleLocks(dbPath)
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	logger.Info("开始数据库迁移...")

	for _, model := range models.AllModels() {
		start := time.Now()
		err := db.AutoMigrate(model)
		logger.LogDatabaseOperation("migrate", fmt.Sprintf("%T", model), time.Since(start), err)
		if err != nil {
			return err
		}
	}

	logger.Info("数据库迁移完成")
	return nil
}
