package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"wareport/internal/bootstrap"
	"wareport/internal/config"
	"wareport/internal/etl"
)

func main() {
	awsCfg, cfg, log := bootstrap.Load(context.Background(),
		config.KeyGlueDatabase,
		config.KeyAthenaTable,
		config.KeyAthenaOutput,
	)
	defer func() { _ = log.Sync() }()

	h := etl.NewPartitionRepair(awsCfg, cfg, log)
	lambda.Start(h.Handle)
}
