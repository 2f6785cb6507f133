package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"wareport/internal/config"
	"wareport/internal/db"
	"wareport/internal/logging"
	"wareport/internal/review"
	"wareport/internal/risks"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/wellarchitected"
	"go.uber.org/zap"
)

type answerSource interface {
	Lenses(ctx context.Context, workloadID string) ([]string, error)
	EachAnswer(ctx context.Context, workloadID, lens string, milestone int32, fn func(review.Answer) error) error
}

type riskWriter interface {
	Upsert(ctx context.Context, rec risks.RiskRecord) error
}

// RiskExtractorHandler copies the HIGH and MEDIUM answers of a workload into
// the risk table when a milestone is created.
type RiskExtractorHandler struct {
	reviews answerSource
	store   riskWriter
	log     *zap.Logger
}

func NewRiskExtractorHandler(awsCfg aws.Config, cfg *config.Config, log *zap.Logger) *RiskExtractorHandler {
	return &RiskExtractorHandler{
		reviews: review.NewClient(wellarchitected.NewFromConfig(awsCfg)),
		store:   db.NewRiskStoreFromConfig(awsCfg, cfg.RiskTable),
		log:     log,
	}
}

// auditDetail is the part of the CreateMilestone CloudTrail event we read.
type auditDetail struct {
	RequestParameters struct {
		WorkloadID string `json:"WorkloadId"`
	} `json:"requestParameters"`
	ResponseElements struct {
		MilestoneNumber int32 `json:"MilestoneNumber"`
	} `json:"responseElements"`
}

// Handle never returns a Go error. Failures are reported as a 500 response so
// the trigger is acknowledged rather than retried.
func (h *RiskExtractorHandler) Handle(ctx context.Context, ev events.CloudWatchEvent) (StageResponse, error) {
	log := logging.ForInvocation(ctx, h.log, "risk-extractor")

	var detail auditDetail
	if err := json.Unmarshal(ev.Detail, &detail); err != nil {
		log.Error("invalid event detail", zap.Error(err))
		return jsonResponse(http.StatusInternalServerError, errorBody{Error: fmt.Sprintf("invalid event detail: %v", err)})
	}
	workloadID := strings.TrimSpace(detail.RequestParameters.WorkloadID)
	milestone := detail.ResponseElements.MilestoneNumber
	if workloadID == "" {
		log.Error("event has no workload id")
		return jsonResponse(http.StatusInternalServerError, errorBody{Error: "event has no WorkloadId"})
	}
	log = log.With(zap.String("workload_id", workloadID), zap.Int32("milestone_number", milestone))

	written, err := h.extract(ctx, log, workloadID, milestone)
	if err != nil {
		log.Error("extract failed", zap.Error(err))
		return jsonResponse(http.StatusInternalServerError, errorBody{
			Error: fmt.Sprintf("Error processing workload %s: %v", workloadID, err),
		})
	}
	log.Info("extract complete", zap.Int("written", written))

	return okResponse(extractResult{
		Message:         fmt.Sprintf("Successfully processed high and medium risk questions for workload %s.", workloadID),
		WorkloadID:      workloadID,
		MilestoneNumber: milestone,
	})
}

func (h *RiskExtractorHandler) extract(ctx context.Context, log *zap.Logger, workloadID string, milestone int32) (int, error) {
	lenses, err := h.reviews.Lenses(ctx, workloadID)
	if err != nil {
		return 0, err
	}
	log.Info("workload lenses", zap.Strings("lenses", lenses))

	written := 0
	for _, lens := range lenses {
		err := h.reviews.EachAnswer(ctx, workloadID, lens, milestone, func(a review.Answer) error {
			if !a.Risk.Reportable() {
				return nil
			}
			rec := risks.RiskRecord{
				WorkloadID:      workloadID,
				QuestionID:      a.QuestionID,
				LensAlias:       lens,
				PillarID:        a.PillarID,
				Risk:            a.Risk,
				SelectedChoices: a.SelectedChoices,
				Notes:           a.Notes,
				ChoiceIDs:       a.ChoiceIDs(),
				ChoiceTitles:    a.ChoiceTitles(),
			}
			if err := h.store.Upsert(ctx, rec); err != nil {
				return err
			}
			written++
			log.Debug("stored risk",
				zap.String("lens", lens),
				zap.String("question_id", a.QuestionID),
				zap.String("risk", string(a.Risk)))
			return nil
		})
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
