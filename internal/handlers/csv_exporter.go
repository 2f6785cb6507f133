package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"wareport/internal/apperr"
	"wareport/internal/config"
	"wareport/internal/db"
	"wareport/internal/etl"
	"wareport/internal/logging"
	"wareport/internal/review"
	"wareport/internal/risks"
	"wareport/internal/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/wellarchitected"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const csvContentType = "text/csv"

type riskReader interface {
	ListByWorkload(ctx context.Context, workloadID string) ([]risks.RiskRecord, error)
}

type answerLookup interface {
	Answer(ctx context.Context, workloadID, lens, questionID string, milestone int32) (review.Answer, error)
}

type objectWriter interface {
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

type extractWriter interface {
	Write(ctx context.Context, workloadID string, milestone int32, records []risks.RiskRecord) (string, error)
}

// CSVExporterHandler writes the stored risks of a workload to <workloadId>.csv,
// enriched with the live choice list of every question.
type CSVExporterHandler struct {
	store       riskReader
	answers     answerLookup
	objects     objectWriter
	extract     extractWriter // nil when ANALYTICS_BUCKET is unset
	bucket      string
	lens        string
	concurrency int
	log         *zap.Logger
}

func NewCSVExporterHandler(awsCfg aws.Config, cfg *config.Config, log *zap.Logger) *CSVExporterHandler {
	objects := storage.NewObjectStore(s3.NewFromConfig(awsCfg))
	h := &CSVExporterHandler{
		store:       db.NewRiskStoreFromConfig(awsCfg, cfg.RiskTable),
		answers:     review.NewClient(wellarchitected.NewFromConfig(awsCfg)),
		objects:     objects,
		bucket:      cfg.CSVBucket,
		lens:        cfg.LensAlias,
		concurrency: cfg.RowConcurrency,
		log:         log,
	}
	if cfg.AnalyticsBucket != "" {
		h.extract = etl.NewRiskExtractWriter(objects, cfg.AnalyticsBucket, cfg.AnalyticsPrefix)
	}
	return h
}

type exportInput struct {
	WorkloadID      string `json:"workload_id"`
	MilestoneNumber int32  `json:"milestone_number"`
}

func (h *CSVExporterHandler) Handle(ctx context.Context, req StageRequest) (ReportEnvelope, error) {
	log := logging.ForInvocation(ctx, h.log, "csv-exporter")

	var in exportInput
	if err := json.Unmarshal([]byte(req.Body), &in); err != nil {
		return ReportEnvelope{}, apperr.Wrap(apperr.ErrParse, err, "decode exporter input")
	}
	in.WorkloadID = strings.TrimSpace(in.WorkloadID)
	if in.WorkloadID == "" {
		return ReportEnvelope{}, fmt.Errorf("workload_id is required")
	}
	log = log.With(zap.String("workload_id", in.WorkloadID), zap.Int32("milestone_number", in.MilestoneNumber))

	records, err := h.store.ListByWorkload(ctx, in.WorkloadID)
	if err != nil {
		return ReportEnvelope{}, err
	}
	log.Info("loaded risk records", zap.Int("count", len(records)))

	if err := h.enrich(ctx, log, in, records); err != nil {
		return ReportEnvelope{}, err
	}

	var buf bytes.Buffer
	if err := risks.WriteCSV(&buf, records); err != nil {
		return ReportEnvelope{}, err
	}
	key := in.WorkloadID + ".csv"
	if err := h.objects.Put(ctx, h.bucket, key, buf.Bytes(), csvContentType); err != nil {
		return ReportEnvelope{}, err
	}
	log.Info("csv uploaded", zap.String("bucket", h.bucket), zap.String("key", key))

	if h.extract != nil {
		extractKey, err := h.extract.Write(ctx, in.WorkloadID, in.MilestoneNumber, records)
		if err != nil {
			log.Error("analytics extract failed", zap.Error(err))
		} else {
			log.Info("analytics extract written", zap.String("key", extractKey))
		}
	}

	return ReportEnvelope{
		StatusCode:      http.StatusOK,
		CSVKey:          key,
		WorkloadID:      in.WorkloadID,
		MilestoneNumber: in.MilestoneNumber,
	}, nil
}

// enrich replaces the choice lists of each record with the live ones. A record
// whose lookup fails gets empty lists.
func (h *CSVExporterHandler) enrich(ctx context.Context, log *zap.Logger, in exportInput, records []risks.RiskRecord) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(h.concurrency, 1))
	for i := range records {
		rec := &records[i]
		eg.Go(func() error {
			lens := rec.LensAlias
			if lens == "" {
				lens = h.lens
			}
			a, err := h.answers.Answer(ctx, in.WorkloadID, lens, rec.QuestionID, in.MilestoneNumber)
			if err != nil {
				log.Warn("enrichment failed",
					zap.String("question_id", rec.QuestionID),
					zap.Error(apperr.Wrap(apperr.ErrRowProcessing, err, "enrich risk record",
						goerr.V("question_id", rec.QuestionID))))
				rec.ChoiceIDs = []string{}
				rec.ChoiceTitles = []string{}
				return nil
			}
			rec.ChoiceIDs = a.ChoiceIDs()
			rec.ChoiceTitles = a.ChoiceTitles()
			if rec.PillarID == "" {
				rec.PillarID = a.PillarID
			}
			return nil
		})
	}
	return eg.Wait()
}
