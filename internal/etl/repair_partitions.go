package etl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wareport/internal/config"
	"wareport/internal/logging"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"go.uber.org/zap"
)

type AthenaClient interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
}

type GlueClient interface {
	GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error)
}

type RepairOptions struct {
	Database     string
	Table        string
	Workgroup    string
	Output       string // s3://bucket/prefix/
	MaxWait      time.Duration
	PollInterval time.Duration
}

type RepairResult struct {
	Ok            bool     `json:"ok"`
	QueryID       string   `json:"query_id,omitempty"`
	State         string   `json:"state,omitempty"`
	Database      string   `json:"database,omitempty"`
	Table         string   `json:"table,omitempty"`
	Workgroup     string   `json:"workgroup,omitempty"`
	Output        string   `json:"output,omitempty"`
	PartitionKeys []string `json:"partition_keys,omitempty"`
}

// AthenaError is a query that ended in a state other than SUCCEEDED.
type AthenaError struct {
	State            string
	Reason           string
	QueryExecutionID string
}

func (e *AthenaError) Error() string {
	return fmt.Sprintf("athena %s: %s (qid=%s)", e.State, e.Reason, e.QueryExecutionID)
}

// PartitionRepair registers new dt/workload_id partitions of the risk extract
// table so they become queryable.
type PartitionRepair struct {
	athena AthenaClient
	glue   GlueClient
	opts   RepairOptions
	log    *zap.Logger
}

func NewPartitionRepair(awsCfg aws.Config, cfg *config.Config, log *zap.Logger) *PartitionRepair {
	return &PartitionRepair{
		athena: athena.NewFromConfig(awsCfg),
		glue:   glue.NewFromConfig(awsCfg),
		opts: RepairOptions{
			Database:  cfg.GlueDatabase,
			Table:     cfg.AthenaTable,
			Workgroup: cfg.AthenaWorkgroup,
			Output:    cfg.AthenaOutput,
		},
		log: log,
	}
}

// Handle is triggered by an EventBridge schedule.
func (r *PartitionRepair) Handle(ctx context.Context, _ events.CloudWatchEvent) (RepairResult, error) {
	log := logging.ForInvocation(ctx, r.log, "risk-partitions-repair")

	opt := r.opts
	if opt.Database == "" || opt.Table == "" || opt.Output == "" {
		return RepairResult{}, fmt.Errorf("missing env: GLUE_DATABASE, ATHENA_TABLE, ATHENA_OUTPUT are required")
	}
	if !strings.HasPrefix(opt.Output, "s3://") {
		return RepairResult{}, fmt.Errorf("ATHENA_OUTPUT must start with s3://")
	}
	if opt.Workgroup == "" {
		opt.Workgroup = "primary"
	}
	if opt.MaxWait == 0 {
		opt.MaxWait = 60 * time.Second
	}
	if opt.PollInterval == 0 {
		opt.PollInterval = 2 * time.Second
	}

	res := RepairResult{
		Database:  opt.Database,
		Table:     opt.Table,
		Workgroup: opt.Workgroup,
		Output:    opt.Output,
	}

	keys, err := r.partitionKeys(ctx, opt.Database, opt.Table)
	if err != nil {
		return res, err
	}
	if len(keys) == 0 {
		return res, fmt.Errorf("table %s.%s has no partition keys", opt.Database, opt.Table)
	}
	res.PartitionKeys = keys

	startOut, err := r.athena.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: aws.String(fmt.Sprintf("MSCK REPAIR TABLE %s;", opt.Table)),
		QueryExecutionContext: &athenatypes.QueryExecutionContext{
			Database: aws.String(opt.Database),
		},
		WorkGroup: aws.String(opt.Workgroup),
		ResultConfiguration: &athenatypes.ResultConfiguration{
			OutputLocation: aws.String(opt.Output),
		},
	})
	if err != nil {
		return res, fmt.Errorf("athena StartQueryExecution: %w", err)
	}
	res.QueryID = aws.ToString(startOut.QueryExecutionId)
	log = log.With(zap.String("query_id", res.QueryID))
	log.Info("repair started", zap.String("table", opt.Table), zap.Strings("partition_keys", keys))

	state, err := r.wait(ctx, res.QueryID, opt)
	res.State = state
	if err != nil {
		log.Error("repair failed", zap.Error(err))
		return res, err
	}
	res.Ok = true
	log.Info("repair succeeded")
	return res, nil
}

func (r *PartitionRepair) partitionKeys(ctx context.Context, database, table string) ([]string, error) {
	out, err := r.glue.GetTable(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(database),
		Name:         aws.String(table),
	})
	if err != nil {
		return nil, fmt.Errorf("glue GetTable %s.%s: %w", database, table, err)
	}
	if out.Table == nil {
		return nil, fmt.Errorf("glue table %s.%s not found", database, table)
	}
	keys := make([]string, 0, len(out.Table.PartitionKeys))
	for _, p := range out.Table.PartitionKeys {
		keys = append(keys, aws.ToString(p.Name))
	}
	return keys, nil
}

// wait polls until the query leaves the queued/running states or MaxWait
// elapses.
func (r *PartitionRepair) wait(ctx context.Context, qid string, opt RepairOptions) (string, error) {
	deadline := time.Now().Add(opt.MaxWait)
	for {
		st, err := r.athena.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(qid),
		})
		if err != nil {
			return "", fmt.Errorf("athena GetQueryExecution: %w", err)
		}
		status := st.QueryExecution.Status
		switch status.State {
		case athenatypes.QueryExecutionStateSucceeded:
			return string(status.State), nil
		case athenatypes.QueryExecutionStateFailed, athenatypes.QueryExecutionStateCancelled:
			return string(status.State), &AthenaError{
				State:            string(status.State),
				Reason:           aws.ToString(status.StateChangeReason),
				QueryExecutionID: qid,
			}
		}

		if time.Now().After(deadline) {
			return "TIMEOUT", &AthenaError{State: "TIMEOUT", Reason: "repair timed out", QueryExecutionID: qid}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(opt.PollInterval):
		}
	}
}
