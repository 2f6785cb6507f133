package logging

import (
	"context"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the JSON logger shared by a Lambda container. Unknown levels fall
// back to info.
func New(level string) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.SetLevel(zap.InfoLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// ForInvocation scopes base to one Lambda invocation.
func ForInvocation(ctx context.Context, base *zap.Logger, stage string) *zap.Logger {
	log := base.With(zap.String("stage", stage))
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log = log.With(zap.String("request_id", lc.AwsRequestID))
	}
	if fn := lambdacontext.FunctionName; fn != "" {
		log = log.With(zap.String("function", fn))
	}
	return log
}
