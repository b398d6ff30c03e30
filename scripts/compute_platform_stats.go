// 手动触发全平台统计脚本
//
// 主应用每月 1 日会自动执行一次（statistics.platform_schedule）。
// 此脚本用于手动补算，例如导入历史成绩之后；指定 -user 时只统计单个用户。
//
// 用法: go run scripts/compute_platform_stats.go [-config configs] [-user 42]

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"quiz_master_backend/internal/config"
	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/repository"
	"quiz_master_backend/internal/service"
	"quiz_master_backend/pkg/database"
	"quiz_master_backend/pkg/logger"
	"time"

	"gopkg.in/yaml.v3"
)

func main() {
	configPath := flag.String("config", "configs", "配置文件目录")
	userID := flag.Uint("user", 0, "只统计该用户")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	ctx := context.Background()
	dispatcher := service.NewTaskDispatcher(service.NewMemoryJobStore(cfg.Statistics.JobTTL), 1, 1)
	defer dispatcher.Shutdown(ctx)

	stats := service.NewStatisticsService(
		repository.NewUserRepository(db),
		repository.NewScoreRepository(db),
		dispatcher,
		service.NewChartRenderer(service.NewArtifactStore(ctx, &cfg.Storage)),
		service.MonthNamesFrom(cfg.Statistics.MonthNames),
		service.StatisticsOptions{
			Wait:          service.WaitOptions{Timeout: 5 * time.Minute},
			AttemptPolicy: cfg.Statistics.AttemptPolicy,
		},
	)

	var report *model.StatisticsReport
	if *userID != 0 {
		log.Printf("统计用户 %d ...", *userID)
		report, err = stats.GetUserStatistics(ctx, *userID)
	} else {
		log.Println("手动触发全平台统计...")
		report, err = stats.GetPlatformStatistics(ctx)
	}
	if err != nil {
		log.Fatalf("统计失败: %v", err)
	}

	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	if err := enc.Encode(report); err != nil {
		log.Fatalf("输出结果失败: %v", err)
	}
	log.Println("完成！")
}
