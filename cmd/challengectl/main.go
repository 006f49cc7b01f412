// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"
	"os"

	"github.com/AccelByte/extend-habit-challenge/internal/bootstrap"
	"github.com/AccelByte/extend-habit-challenge/internal/cli"
	"github.com/AccelByte/extend-habit-challenge/internal/config"
	"github.com/AccelByte/extend-habit-challenge/pkg/common"
	"github.com/AccelByte/extend-habit-challenge/pkg/service"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetLevel(common.ParseLogLevel(common.GetEnv("LOG_LEVEL", "warn")))

	root := cli.NewRootCommand(cli.Deps{
		OpenStore: func(ctx context.Context) (service.Store, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return bootstrap.InitStore(ctx, cfg)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
