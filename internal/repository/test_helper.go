package repository

import (
	"path/filepath"

	"github.com/wfunc/essay-arena/internal/config"
	"github.com/wfunc/essay-arena/internal/database"
	"github.com/wfunc/essay-arena/internal/models"
	"gorm.io/gorm"
)

// SetupTestDB 为测试套件设置内存数据库
//
// 与服务进程走同一个 database.Open。内存库每个连接各自独立，
// 连接池限制为1保证所有查询看到同一份数据。
func SetupTestDB() *gorm.DB {
	return openTestDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
}

// SetupFileTestDB 在目录下创建文件型数据库，使用多连接池
func SetupFileTestDB(dir string, maxOpenConns int) *gorm.DB {
	return openTestDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          filepath.Join(dir, "arena.db"),
		MaxIdleConns: maxOpenConns,
		MaxOpenConns: maxOpenConns,
		LogLevel:     "silent",
	})
}

func openTestDB(cfg *config.DatabaseConfig) *gorm.DB {
	db, err := database.Open(cfg)
	if err != nil {
		panic(err)
	}
	if err := database.AutoMigrate(db); err != nil {
		panic(err)
	}
	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SeedProject 创建测试项目
func SeedProject(db *gorm.DB, code string, cooldownSeconds int) *models.Project {
	project := &models.Project{
		Code:            code,
		Name:            "测试项目 " + code,
		CooldownSeconds: cooldownSeconds,
	}
	if err := db.Create(project).Error; err != nil {
		panic(err)
	}
	return project
}
