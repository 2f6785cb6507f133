package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"wareport/internal/bootstrap"
	"wareport/internal/config"
	"wareport/internal/handlers"
)

func main() {
	awsCfg, cfg, log := bootstrap.Load(context.Background(), config.KeyRiskTable, config.KeyCSVBucket)
	defer func() { _ = log.Sync() }()

	h := handlers.NewCSVExporterHandler(awsCfg, cfg, log)
	lambda.Start(h.Handle)
}
