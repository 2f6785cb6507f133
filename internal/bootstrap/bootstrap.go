package bootstrap

import (
	"context"
	"log"

	"wareport/internal/config"
	"wareport/internal/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"
)

// Load runs the cold-start setup shared by every Lambda binary: AWS config,
// stage settings and the base logger. Missing required settings are fatal.
func Load(ctx context.Context, required ...string) (aws.Config, *config.Config, *zap.Logger) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	cfg, err := config.Load(ctx, ssm.NewFromConfig(awsCfg))
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}
	if err := cfg.Require(required...); err != nil {
		log.Fatalf("%v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	return awsCfg, cfg, logger
}
