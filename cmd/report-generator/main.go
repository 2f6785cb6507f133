package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"wareport/internal/bootstrap"
	"wareport/internal/config"
	"wareport/internal/handlers"
)

func main() {
	awsCfg, cfg, log := bootstrap.Load(context.Background(),
		config.KeyCSVBucket,
		config.KeyTemplateBucket,
		config.KeyTemplateFile,
		config.KeyDestinationBucket,
	)
	defer func() { _ = log.Sync() }()

	h := handlers.NewReportGeneratorHandler(awsCfg, cfg, log)
	lambda.Start(h.Handle)
}
