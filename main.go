package main

import (
	"flag"
	"log"

	"quiz_master_backend/internal/app"
	"quiz_master_backend/internal/config"
	"quiz_master_backend/pkg/logger"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	migrateOnly := flag.Bool("migrate-only", false, "建表后退出，用于部署前的迁移步骤")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("load config from %s: %v", *configDir, err)
	}
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if cfg.MigrateOnly {
		logger.Log.Info("Migration finished, exiting")
		return
	}
	application.Run()
}
