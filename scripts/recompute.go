// 手动重算学生统计与进步记录
//
// 服务内的定时任务只刷新统计（scheduler.stats_refresh_interval），
// 导入历史成绩或修改积分规则后可用此脚本全量重建。
//
// 用法: go run scripts/recompute.go [-user 42] [-progress]

package main

import (
	"context"
	"flag"
	"log"
	"training_tracker_backend/internal/config"
	"training_tracker_backend/internal/model"
	"training_tracker_backend/internal/repository"
	"training_tracker_backend/internal/service"
	"training_tracker_backend/pkg/database"
	"training_tracker_backend/pkg/logger"
)

func main() {
	userID := flag.Uint("user", 0, "只处理指定用户，0 表示全部学生")
	withProgress := flag.Bool("progress", false, "同时重建进步记录")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	rules, err := service.RulesFromConfig(cfg.Scoring)
	if err != nil {
		log.Fatalf("积分规则无效: %v", err)
	}

	ctx := context.Background()
	uow := repository.NewUnitOfWork(db)
	xp := service.NewXPService(uow, service.SystemClock{}, rules)
	stats := service.NewUserStatService(uow, xp, service.SystemClock{}, nil)
	progress := service.NewProgressTrackingService(uow, service.SystemClock{})

	var ids []uint
	if *userID != 0 {
		ids = []uint{*userID}
	} else {
		ids, err = uow.Repositories().Users.ListIDsByRole(ctx, model.Student)
		if err != nil {
			log.Fatalf("查询学生失败: %v", err)
		}
	}

	log.Printf("开始重算 %d 名用户...", len(ids))
	failed := 0
	for _, id := range ids {
		if _, err := stats.RecomputeUserStat(ctx, id); err != nil {
			log.Printf("用户 %d 统计重算失败: %v", id, err)
			failed++
			continue
		}
		if *withProgress {
			if _, err := progress.RecalculateAll(ctx, id); err != nil {
				log.Printf("用户 %d 进步记录重建失败: %v", id, err)
				failed++
			}
		}
	}
	log.Printf("完成！失败 %d 个", failed)
}
