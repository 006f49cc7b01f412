// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-habit-challenge/internal/config"
	"github.com/AccelByte/extend-habit-challenge/pkg/catalog"
	"github.com/AccelByte/extend-habit-challenge/pkg/engine"
	"github.com/AccelByte/extend-habit-challenge/pkg/scheduler"
	"github.com/AccelByte/extend-habit-challenge/pkg/service"
	"github.com/sirupsen/logrus"
)

// InitEngine creates the recompute engine over a store.
func InitEngine(store service.Store) *engine.Engine {
	logrus.Info("initialized recompute engine")
	return engine.New(store, store, store)
}

// InitScheduler creates the periodic batch driver. It does nothing until started.
func InitScheduler(cfg *config.Config, store service.Store, eng *engine.Engine) *scheduler.Scheduler {
	return scheduler.New(store, eng, scheduler.Config{
		Interval:        cfg.RecalcInterval,
		Workers:         cfg.RecalcWorkers,
		TZOffsetMinutes: cfg.DefaultTZOffsetMinutes,
	})
}

// InitCatalog seeds challenges from CATALOG_PATH when it is set.
func InitCatalog(ctx context.Context, cfg *config.Config, store service.Store, eng *engine.Engine) error {
	if cfg.CatalogPath == "" {
		logrus.Debug("no challenge catalog configured")
		return nil
	}

	catalogConfig, err := catalog.LoadConfig(cfg.CatalogPath)
	if err != nil {
		return err
	}
	logrus.Infof("loaded %d catalog challenges from %s", len(catalogConfig.Challenges), cfg.CatalogPath)

	if _, err := catalog.Seed(ctx, catalogConfig, store, store, eng, time.Now()); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	return nil
}
