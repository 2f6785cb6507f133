package etl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAthena struct {
	startErr error
	states   []athenatypes.QueryExecutionState
	reason   string

	started *athena.StartQueryExecutionInput
	polls   int
}

func (f *fakeAthena) StartQueryExecution(ctx context.Context, in *athena.StartQueryExecutionInput, _ ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = in
	return &athena.StartQueryExecutionOutput{QueryExecutionId: aws.String("q-1")}, nil
}

func (f *fakeAthena) GetQueryExecution(ctx context.Context, in *athena.GetQueryExecutionInput, _ ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error) {
	state := f.states[min(f.polls, len(f.states)-1)]
	f.polls++
	return &athena.GetQueryExecutionOutput{QueryExecution: &athenatypes.QueryExecution{
		QueryExecutionId: in.QueryExecutionId,
		Status: &athenatypes.QueryExecutionStatus{
			State:             state,
			StateChangeReason: aws.String(f.reason),
		},
	}}, nil
}

type fakeGlue struct {
	keys []string
	err  error
}

func (f *fakeGlue) GetTable(ctx context.Context, in *glue.GetTableInput, _ ...func(*glue.Options)) (*glue.GetTableOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	t := &gluetypes.Table{Name: in.Name}
	for _, k := range f.keys {
		t.PartitionKeys = append(t.PartitionKeys, gluetypes.Column{Name: aws.String(k), Type: aws.String("string")})
	}
	return &glue.GetTableOutput{Table: t}, nil
}

func newRepair(a *fakeAthena, g *fakeGlue) *PartitionRepair {
	return &PartitionRepair{
		athena: a,
		glue:   g,
		opts: RepairOptions{
			Database:     "wareport_analytics",
			Table:        "risk_extract",
			Output:       "s3://athena-results/wareport/",
			MaxWait:      time.Second,
			PollInterval: time.Millisecond,
		},
		log: zap.NewNop(),
	}
}

func TestRepairSucceeds(t *testing.T) {
	a := &fakeAthena{states: []athenatypes.QueryExecutionState{
		athenatypes.QueryExecutionStateQueued,
		athenatypes.QueryExecutionStateRunning,
		athenatypes.QueryExecutionStateSucceeded,
	}}
	r := newRepair(a, &fakeGlue{keys: []string{"dt", "workload_id"}})

	res, err := r.Handle(context.Background(), events.CloudWatchEvent{})
	require.NoError(t, err)

	assert.Equal(t, RepairResult{
		Ok:            true,
		QueryID:       "q-1",
		State:         "SUCCEEDED",
		Database:      "wareport_analytics",
		Table:         "risk_extract",
		Workgroup:     "primary",
		Output:        "s3://athena-results/wareport/",
		PartitionKeys: []string{"dt", "workload_id"},
	}, res)
	assert.Equal(t, "MSCK REPAIR TABLE risk_extract;", aws.ToString(a.started.QueryString))
	assert.Equal(t, "wareport_analytics", aws.ToString(a.started.QueryExecutionContext.Database))
	assert.Equal(t, 3, a.polls)
}

func TestRepairQueryFails(t *testing.T) {
	a := &fakeAthena{states: []athenatypes.QueryExecutionState{athenatypes.QueryExecutionStateFailed}, reason: "access denied"}
	res, err := newRepair(a, &fakeGlue{keys: []string{"dt"}}).Handle(context.Background(), events.CloudWatchEvent{})

	var aerr *AthenaError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "FAILED", aerr.State)
	assert.Equal(t, "access denied", aerr.Reason)
	assert.False(t, res.Ok)
	assert.Equal(t, "q-1", res.QueryID)
}

func TestRepairTimesOut(t *testing.T) {
	a := &fakeAthena{states: []athenatypes.QueryExecutionState{athenatypes.QueryExecutionStateRunning}}
	r := newRepair(a, &fakeGlue{keys: []string{"dt"}})
	r.opts.MaxWait = 5 * time.Millisecond

	res, err := r.Handle(context.Background(), events.CloudWatchEvent{})
	var aerr *AthenaError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "TIMEOUT", res.State)
}

func TestRepairChecksTableFirst(t *testing.T) {
	a := &fakeAthena{}

	_, err := newRepair(a, &fakeGlue{err: errors.New("EntityNotFoundException")}).Handle(context.Background(), events.CloudWatchEvent{})
	assert.ErrorContains(t, err, "glue GetTable wareport_analytics.risk_extract")

	_, err = newRepair(a, &fakeGlue{}).Handle(context.Background(), events.CloudWatchEvent{})
	assert.ErrorContains(t, err, "no partition keys")
	assert.Nil(t, a.started)
}

func TestRepairValidatesOptions(t *testing.T) {
	r := newRepair(&fakeAthena{}, &fakeGlue{})
	r.opts.Output = "athena-results/"
	_, err := r.Handle(context.Background(), events.CloudWatchEvent{})
	assert.ErrorContains(t, err, "s3://")

	r.opts.Table = ""
	_, err = r.Handle(context.Background(), events.CloudWatchEvent{})
	assert.ErrorContains(t, err, "missing env")
}
