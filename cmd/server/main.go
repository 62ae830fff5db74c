package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/wfunc/essay-arena/internal/config"
	"github.com/wfunc/essay-arena/internal/logger"
	"go.uber.org/automaxprocs/maxprocs"
)

const programName = "essay-arena"

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "作文评审对战实时服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(config.Get())
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "配置文件路径")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return setup()
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(versionCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup 加载配置、初始化日志并设置系统参数
func setup() error {
	if err := config.Init(configFile); err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	cfg := config.Get()

	if err := logger.Init(&cfg.Log); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	setupSystem(&cfg.System)
	return nil
}

// setupSystem 设置系统参数
func setupSystem(cfg *config.SystemConfig) {
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		}
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
		return
	}
	// 按容器CPU配额设置
	if _, err := maxprocs.Set(maxprocs.Logger(logger.GetSugar().Infof)); err != nil {
		logger.GetSugar().Warnf("设置GOMAXPROCS失败: %v", err)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s\n", programName)
			fmt.Printf("版本: %s\n", Version)
			fmt.Printf("构建时间: %s\n", BuildTime)
			fmt.Printf("Git提交: %s\n", GitCommit)
			fmt.Printf("Go版本: %s\n", runtime.Version())
			fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
