package db

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// NewRiskStoreFromConfig builds a RiskStore on a DynamoDB client. Credentials
// come from the Lambda execution role.
func NewRiskStoreFromConfig(cfg aws.Config, table string) *RiskStore {
	return NewRiskStore(dynamodb.NewFromConfig(cfg), table)
}
