package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"wareport/internal/apperr"
	"wareport/internal/config"
	"wareport/internal/logging"
	"wareport/internal/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
)

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NotifierHandler publishes a one-hour download link for a finished report.
type NotifierHandler struct {
	presign storage.PresignAPI
	sns     SNSAPI
	topic   string
	log     *zap.Logger
}

func NewNotifierHandler(awsCfg aws.Config, cfg *config.Config, log *zap.Logger) *NotifierHandler {
	return &NotifierHandler{
		presign: s3.NewPresignClient(s3.NewFromConfig(awsCfg)),
		sns:     sns.NewFromConfig(awsCfg),
		topic:   cfg.SNSTopic,
		log:     log,
	}
}

type notifyInput struct {
	S3Bucket       string `json:"s3Bucket"`
	ReportFilename string `json:"reportFilename"`
	MilestoneName  string `json:"milestoneName"`
}

func NotificationSubject(milestoneName string) string {
	return fmt.Sprintf("%s: Well-Architected Report Available", milestoneName)
}

func NotificationMessage(milestoneName, url string) string {
	return fmt.Sprintf("%s has completed a new Well-Architected Review, and their report is available to download here: %s",
		milestoneName, url)
}

func (h *NotifierHandler) Handle(ctx context.Context, req StageRequest) (StageResponse, error) {
	log := logging.ForInvocation(ctx, h.log, "notifier")

	var in notifyInput
	if err := json.Unmarshal([]byte(req.Body), &in); err != nil {
		return StageResponse{}, apperr.Wrap(apperr.ErrParse, err, "decode notifier input")
	}
	if strings.TrimSpace(in.S3Bucket) == "" || strings.TrimSpace(in.ReportFilename) == "" {
		return StageResponse{}, fmt.Errorf("s3Bucket and reportFilename are required")
	}
	log = log.With(zap.String("bucket", in.S3Bucket), zap.String("key", in.ReportFilename))

	url, err := storage.PresignGet(ctx, h.presign, in.S3Bucket, in.ReportFilename, storage.DownloadURLTTL)
	if err != nil {
		log.Error("presign failed", zap.Error(err))
		return StageResponse{}, err
	}

	out, err := h.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.topic),
		Subject:  aws.String(NotificationSubject(in.MilestoneName)),
		Message:  aws.String(NotificationMessage(in.MilestoneName, url)),
	})
	if err != nil {
		err = apperr.Wrap(apperr.ErrPublish, err, "sns publish", goerr.V("topic", h.topic))
		log.Error("publish failed", zap.Error(err))
		return StageResponse{}, err
	}
	messageID := aws.ToString(out.MessageId)
	log.Info("notification published", zap.String("message_id", messageID))

	return StageResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf("Presigned URL published to SNS topic. SNS Message ID: %s", messageID),
	}, nil
}
