package main

import (
	"github.com/spf13/cobra"
	"github.com/wfunc/essay-arena/internal/config"
	"github.com/wfunc/essay-arena/internal/database"
	"github.com/wfunc/essay-arena/internal/errors"
	"github.com/wfunc/essay-arena/internal/logger"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移后退出",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if err := database.Init(&cfg.Database); err != nil {
				return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
			}
			defer database.Close()

			if err := database.AutoMigrate(database.GetDB()); err != nil {
				return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
			}
			logger.Info("迁移完成")
			_ = logger.Sync()
			return nil
		},
	}
}
