package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wareport/internal/apperr"
	"wareport/internal/risks"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/m-mizutani/goerr/v2"
)

type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// RiskStore keeps one item per (WorkloadId, QuestionId).
type RiskStore struct {
	ddb   DynamoAPI
	table string
	now   func() time.Time
}

func NewRiskStore(ddb DynamoAPI, table string) *RiskStore {
	return &RiskStore{ddb: ddb, table: table, now: time.Now}
}

// Upsert overwrites any existing item for the record's key. Last write wins.
func (s *RiskStore) Upsert(ctx context.Context, rec risks.RiskRecord) error {
	if strings.TrimSpace(s.table) == "" {
		return fmt.Errorf("DYNAMODB_TABLE not set")
	}
	if rec.WorkloadID == "" || rec.QuestionID == "" {
		return fmt.Errorf("missing WorkloadId/QuestionId")
	}
	if rec.SelectedChoices == nil {
		rec.SelectedChoices = []string{}
	}
	if rec.ChoiceIDs == nil {
		rec.ChoiceIDs = []string{}
	}
	if rec.ChoiceTitles == nil {
		rec.ChoiceTitles = []string{}
	}
	rec.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal risk record: %w", err)
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("ddb put risk %s/%s: %w", rec.WorkloadID, rec.QuestionID, err)
	}
	return nil
}

// ListByWorkload returns every stored record of a workload, following
// LastEvaluatedKey until the query is exhausted.
func (s *RiskStore) ListByWorkload(ctx context.Context, workloadID string) ([]risks.RiskRecord, error) {
	if strings.TrimSpace(s.table) == "" {
		return nil, fmt.Errorf("DYNAMODB_TABLE not set")
	}

	var (
		out      []risks.RiskRecord
		startKey map[string]types.AttributeValue
	)
	for {
		page, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("WorkloadId = :w"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":w": &types.AttributeValueMemberS{Value: workloadID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrUpstreamLookup, err, "query risk records", goerr.V("workload_id", workloadID))
		}

		var items []risks.RiskRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal risk records: %w", err)
		}
		out = append(out, items...)

		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		startKey = page.LastEvaluatedKey
	}
	return out, nil
}
