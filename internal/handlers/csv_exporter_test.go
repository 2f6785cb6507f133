package handlers

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"wareport/internal/apperr"
	"wareport/internal/review"
	"wareport/internal/risks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeLookup struct {
	answers map[string]review.Answer
	fail    map[string]bool

	mu    sync.Mutex
	calls []string
}

func (f *fakeLookup) Answer(ctx context.Context, workloadID, lens, questionID string, milestone int32) (review.Answer, error) {
	f.mu.Lock()
	f.calls = append(f.calls, lens+"/"+questionID)
	f.mu.Unlock()
	if f.fail[questionID] {
		return review.Answer{}, apperr.New(apperr.ErrUpstreamLookup, "answer not found")
	}
	return f.answers[questionID], nil
}

type putCall struct {
	bucket, key, contentType string
	body                     []byte
}

type fakeWriter struct {
	err  error
	puts []putCall
}

func (f *fakeWriter) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if f.err != nil {
		return f.err
	}
	f.puts = append(f.puts, putCall{bucket: bucket, key: key, contentType: contentType, body: body})
	return nil
}

type fakeExtract struct {
	err       error
	workload  string
	milestone int32
	records   []risks.RiskRecord
}

func (f *fakeExtract) Write(ctx context.Context, workloadID string, milestone int32, records []risks.RiskRecord) (string, error) {
	f.workload, f.milestone, f.records = workloadID, milestone, records
	if f.err != nil {
		return "", f.err
	}
	return "risk_extract/dt=2026-01-01/workload_id=w-1/part-0.parquet", nil
}

func newExporter(store *fakeRiskStore, lookup *fakeLookup, objects *fakeWriter, log *zap.Logger) *CSVExporterHandler {
	return &CSVExporterHandler{
		store:       store,
		answers:     lookup,
		objects:     objects,
		bucket:      "csv-bucket",
		lens:        "wellarchitected",
		concurrency: 2,
		log:         log,
	}
}

func TestCSVExporterWritesEnrichedCSV(t *testing.T) {
	store := &fakeRiskStore{records: []risks.RiskRecord{
		{WorkloadID: "w-1", QuestionID: "q1", LensAlias: "serverless", Risk: risks.RiskHigh, SelectedChoices: []string{"a"}, Notes: "n1"},
		{WorkloadID: "w-1", QuestionID: "q2", Risk: risks.RiskMedium, SelectedChoices: []string{}},
		{WorkloadID: "w-1", QuestionID: "q3", Risk: risks.RiskMedium, ChoiceIDs: []string{"stale"}, ChoiceTitles: []string{"Stale"}},
	}}
	lookup := &fakeLookup{
		answers: map[string]review.Answer{
			"q1": {PillarID: "security", Choices: []review.Choice{{ID: "a", Title: "Alpha, with comma"}, {ID: "b", Title: `Bravo "quoted"`}}},
			"q2": {PillarID: "reliability", Choices: []review.Choice{{ID: "c", Title: "Charlie"}}},
		},
		fail: map[string]bool{"q3": true},
	}
	objects := &fakeWriter{}
	core, logs := observer.New(zap.InfoLevel)
	h := newExporter(store, lookup, objects, zap.New(core))

	out, err := h.Handle(context.Background(), StageRequest{Body: `{"workload_id":"w-1","milestone_number":7}`})
	require.NoError(t, err)
	assert.Equal(t, ReportEnvelope{StatusCode: 200, CSVKey: "w-1.csv", WorkloadID: "w-1", MilestoneNumber: 7}, out)

	require.Len(t, objects.puts, 1)
	assert.Equal(t, "csv-bucket", objects.puts[0].bucket)
	assert.Equal(t, "w-1.csv", objects.puts[0].key)
	assert.Equal(t, "text/csv", objects.puts[0].contentType)

	rows, err := risks.ReadCSV(bytes.NewReader(objects.puts[0].body))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	rec, err := rows[0].Record()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, rec.ChoiceIDs)
	assert.Equal(t, []string{"Alpha, with comma", `Bravo "quoted"`}, rec.ChoiceTitles)
	assert.Equal(t, []string{"a"}, rec.SelectedChoices)
	assert.Equal(t, "n1", rec.Notes)

	rec, err = rows[2].Record()
	require.NoError(t, err)
	assert.Empty(t, rec.ChoiceIDs)
	assert.Empty(t, rec.ChoiceTitles)

	assert.ElementsMatch(t, []string{"serverless/q1", "wellarchitected/q2", "wellarchitected/q3"}, lookup.calls)
	assert.Equal(t, 1, logs.FilterMessage("enrichment failed").Len())
}

func TestCSVExporterWritesAnalyticsExtract(t *testing.T) {
	store := &fakeRiskStore{records: []risks.RiskRecord{{WorkloadID: "w-1", QuestionID: "q1", Risk: risks.RiskHigh}}}
	lookup := &fakeLookup{answers: map[string]review.Answer{"q1": {PillarID: "security"}}}
	extract := &fakeExtract{}
	h := newExporter(store, lookup, &fakeWriter{}, zap.NewNop())
	h.extract = extract

	_, err := h.Handle(context.Background(), StageRequest{Body: `{"workload_id":"w-1","milestone_number":2}`})
	require.NoError(t, err)
	assert.Equal(t, "w-1", extract.workload)
	assert.Equal(t, int32(2), extract.milestone)
	require.Len(t, extract.records, 1)
	assert.Equal(t, "security", extract.records[0].PillarID)

	extract.err = errors.New("analytics bucket denied")
	_, err = h.Handle(context.Background(), StageRequest{Body: `{"workload_id":"w-1","milestone_number":2}`})
	assert.NoError(t, err)
}

func TestCSVExporterFailures(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		store := &fakeRiskStore{listErr: apperr.New(apperr.ErrUpstreamLookup, "query risk records")}
		objects := &fakeWriter{}
		_, err := newExporter(store, &fakeLookup{}, objects, zap.NewNop()).
			Handle(context.Background(), StageRequest{Body: `{"workload_id":"w-1","milestone_number":1}`})
		assert.ErrorIs(t, err, apperr.ErrUpstreamLookup)
		assert.Empty(t, objects.puts)
	})

	t.Run("upload", func(t *testing.T) {
		objects := &fakeWriter{err: errors.New("access denied")}
		_, err := newExporter(&fakeRiskStore{}, &fakeLookup{}, objects, zap.NewNop()).
			Handle(context.Background(), StageRequest{Body: `{"workload_id":"w-1","milestone_number":1}`})
		assert.ErrorContains(t, err, "access denied")
	})

	t.Run("bad body", func(t *testing.T) {
		_, err := newExporter(&fakeRiskStore{}, &fakeLookup{}, &fakeWriter{}, zap.NewNop()).
			Handle(context.Background(), StageRequest{Body: `{`})
		assert.ErrorIs(t, err, apperr.ErrParse)
	})

	t.Run("missing workload", func(t *testing.T) {
		_, err := newExporter(&fakeRiskStore{}, &fakeLookup{}, &fakeWriter{}, zap.NewNop()).
			Handle(context.Background(), StageRequest{Body: `{"milestone_number":1}`})
		assert.ErrorContains(t, err, "workload_id")
	})
}
