package handlers

import (
	"context"
	"fmt"
	"strings"

	"wareport/internal/config"
	"wareport/internal/logging"
	"wareport/internal/report"
	"wareport/internal/review"
	"wareport/internal/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/wellarchitected"
	"go.uber.org/zap"
)

type ReportGeneratorHandler struct {
	reviews report.Reviewer
	objects report.Objects
	opts    report.Options
	log     *zap.Logger
}

func NewReportGeneratorHandler(awsCfg aws.Config, cfg *config.Config, log *zap.Logger) *ReportGeneratorHandler {
	return &ReportGeneratorHandler{
		reviews: review.NewClient(wellarchitected.NewFromConfig(awsCfg)),
		objects: storage.NewObjectStore(s3.NewFromConfig(awsCfg)),
		opts: report.Options{
			CSVBucket:      cfg.CSVBucket,
			TemplateBucket: cfg.TemplateBucket,
			TemplateFile:   cfg.TemplateFile,
			OutputBucket:   cfg.DestinationBucket,
			LensAlias:      cfg.LensAlias,
			Concurrency:    cfg.RowConcurrency,
		},
		log: log,
	}
}

// Handle returns the error of any failed stage step; no report is uploaded in
// that case.
func (h *ReportGeneratorHandler) Handle(ctx context.Context, in ReportEnvelope) (StageResponse, error) {
	workloadID := strings.TrimSpace(in.WorkloadID)
	csvKey := strings.TrimSpace(in.CSVKey)
	if workloadID == "" || csvKey == "" {
		return StageResponse{}, fmt.Errorf("workload_id and csv_s3_key are required")
	}

	log := logging.ForInvocation(ctx, h.log, "report-generator").With(
		zap.String("workload_id", workloadID),
		zap.Int32("milestone_number", in.MilestoneNumber),
		zap.String("csv_key", csvKey))

	gen := report.NewGenerator(h.reviews, h.objects, h.opts, log)
	res, err := gen.Generate(ctx, report.Request{
		WorkloadID:      workloadID,
		MilestoneNumber: in.MilestoneNumber,
		CSVKey:          csvKey,
	})
	if err != nil {
		log.Error("report generation failed", zap.Error(err))
		return StageResponse{}, err
	}

	return okResponse(reportResult{
		Message:         "Report generated and uploaded successfully.",
		WorkloadID:      res.WorkloadID,
		ReportFilename:  res.ReportFilename,
		MilestoneName:   res.MilestoneName,
		MilestoneNumber: res.MilestoneNumber,
		S3Bucket:        res.OutputBucket,
	})
}
