package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"wareport/internal/apperr"
	"wareport/internal/chart"
	"wareport/internal/docx"
	"wareport/internal/review"
	"wareport/internal/risks"

	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Reviewer resolves milestone names and per-question answer detail.
type Reviewer interface {
	MilestoneName(ctx context.Context, workloadID string, milestone int32) (string, error)
	Answer(ctx context.Context, workloadID, lens, questionID string, milestone int32) (review.Answer, error)
}

// Objects reads the CSV and template and stores the finished report.
type Objects interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

// Options names the buckets and template a Generator works with.
type Options struct {
	CSVBucket      string
	TemplateBucket string
	TemplateFile   string
	OutputBucket   string
	LensAlias      string
	Concurrency    int
}

// Request identifies the milestone to report on and its risk CSV.
type Request struct {
	WorkloadID      string
	MilestoneNumber int32
	CSVKey          string
}

// Result describes an uploaded report.
type Result struct {
	ReportFilename  string
	MilestoneName   string
	WorkloadID      string
	MilestoneNumber int32
	OutputBucket    string
}

// Generator turns a risk CSV into a filled report document.
type Generator struct {
	reviewer Reviewer
	objects  Objects
	opts     Options
	log      *zap.Logger

	now         func() time.Time
	renderChart func([]chart.Series) ([]byte, error)
}

func NewGenerator(reviewer Reviewer, objects Objects, opts Options, log *zap.Logger) *Generator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Generator{
		reviewer:    reviewer,
		objects:     objects,
		opts:        opts,
		log:         log,
		now:         time.Now,
		renderChart: chart.RenderRiskChart,
	}
}

// Filename is the object key of a report generated on the given day. Reports
// generated the same day for the same milestone share a name.
func Filename(milestoneName string, at time.Time) string {
	return fmt.Sprintf("%s-%s-well-architected-report.docx", milestoneName, at.Format("02012006"))
}

// Generate builds and uploads the report. Nothing is uploaded unless every
// stage-level step succeeds; rows whose answer lookup fails are skipped.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	milestoneName, err := g.reviewer.MilestoneName(ctx, req.WorkloadID, req.MilestoneNumber)
	if err != nil {
		return nil, err
	}
	g.log.Info("resolved milestone", zap.String("milestone_name", milestoneName))

	csvData, err := g.objects.Get(ctx, g.opts.CSVBucket, req.CSVKey)
	if err != nil {
		return nil, err
	}
	rows, err := risks.ReadCSV(bytes.NewReader(csvData))
	if err != nil {
		return nil, goerr.Wrap(err, "parse risk csv", goerr.V("key", req.CSVKey))
	}

	findings, err := g.collectFindings(ctx, req, rows)
	if err != nil {
		return nil, err
	}
	tally := NewTally(findings)
	g.log.Info("classified findings",
		zap.Int("rows", len(rows)),
		zap.Int("findings", len(findings)))

	png, err := g.renderChart(tally.Series())
	if err != nil {
		return nil, err
	}

	tmpl, err := g.objects.Get(ctx, g.opts.TemplateBucket, g.opts.TemplateFile)
	if err != nil {
		return nil, err
	}
	doc, err := docx.Open(tmpl)
	if err != nil {
		return nil, goerr.Wrap(err, "open report template", goerr.V("key", g.opts.TemplateFile))
	}
	err = Fill(Paragraphs(doc.Paragraphs()), Content{
		MilestoneName: milestoneName,
		High:          ByPillar(findings, risks.RiskHigh),
		Medium:        ByPillar(findings, risks.RiskMedium),
		Chart:         png,
	})
	if err != nil {
		return nil, err
	}
	out, err := doc.Bytes()
	if err != nil {
		return nil, err
	}

	name := Filename(milestoneName, g.now())
	if err := g.objects.Put(ctx, g.opts.OutputBucket, name, out, docxContentType); err != nil {
		return nil, err
	}
	g.log.Info("report uploaded", zap.String("bucket", g.opts.OutputBucket), zap.String("key", name))

	return &Result{
		ReportFilename:  name,
		MilestoneName:   milestoneName,
		WorkloadID:      req.WorkloadID,
		MilestoneNumber: req.MilestoneNumber,
		OutputBucket:    g.opts.OutputBucket,
	}, nil
}

// collectFindings fetches answer detail per row, at most Concurrency at a
// time. Output order follows row order.
func (g *Generator) collectFindings(ctx context.Context, req Request, rows []risks.CSVRow) ([]Finding, error) {
	slots := make([]*Finding, len(rows))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Concurrency)
	for i, row := range rows {
		// Rows that can never be reported are dropped before the lookup.
		if !risks.Risk(row.Risk).Reportable() {
			continue
		}
		eg.Go(func() error {
			f, err := g.classify(egCtx, req, row)
			if err != nil {
				g.log.Warn("skipping row", zap.String("question_id", row.QuestionID), zap.Error(err))
				return nil
			}
			slots[i] = &f
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Finding
	for _, f := range slots {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (g *Generator) classify(ctx context.Context, req Request, row risks.CSVRow) (Finding, error) {
	workloadID := row.WorkloadID
	if workloadID == "" {
		workloadID = req.WorkloadID
	}

	answer, err := g.reviewer.Answer(ctx, workloadID, g.opts.LensAlias, row.QuestionID, req.MilestoneNumber)
	if err != nil {
		return Finding{}, apperr.Wrap(apperr.ErrRowProcessing, err, "fetch answer detail")
	}

	pillar, ok := risks.ParsePillar(answer.PillarID)
	if !ok {
		return Finding{}, apperr.New(apperr.ErrRowProcessing, "unknown pillar", goerr.V("pillar_id", answer.PillarID))
	}

	selected, err := risks.ParseList(row.SelectedChoices)
	if err != nil {
		if !errors.Is(err, apperr.ErrParse) {
			return Finding{}, err
		}
		g.log.Warn("selected choices unreadable, using live answer",
			zap.String("question_id", row.QuestionID), zap.Error(err))
		selected = answer.SelectedChoices
	}

	notes := row.Notes
	if notes == "" {
		notes = answer.Notes
	}

	return Finding{
		Pillar:          pillar,
		Risk:            risks.Risk(row.Risk),
		QuestionID:      row.QuestionID,
		QuestionTitle:   answer.QuestionTitle,
		Notes:           notes,
		ImprovementPlan: ImprovementPlan(answer.Choices, selected),
	}, nil
}
