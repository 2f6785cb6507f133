package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Env keys.
const (
	KeyRiskTable         = "DYNAMODB_TABLE"
	KeyCSVBucket         = "CSV_BUCKET"
	KeyTemplateBucket    = "TEMPLATE_BUCKET"
	KeyTemplateFile      = "TEMPLATE_FILE"
	KeyDestinationBucket = "DESTINATION_BUCKET"
	KeySNSTopic          = "SNS_TOPIC"
	KeyLensAlias         = "LENS_ALIAS"
	KeyRowConcurrency    = "ROW_CONCURRENCY"
	KeyAnalyticsBucket   = "ANALYTICS_BUCKET"
	KeyAnalyticsPrefix   = "ANALYTICS_PREFIX"
	KeyGlueDatabase      = "GLUE_DATABASE"
	KeyAthenaTable       = "ATHENA_TABLE"
	KeyAthenaWorkgroup   = "ATHENA_WORKGROUP"
	KeyAthenaOutput      = "ATHENA_OUTPUT"
	KeyLogLevel          = "LOG_LEVEL"
	KeySSMPrefix         = "SSM_PARAMETER_PREFIX"
)

var allKeys = []string{
	KeyRiskTable, KeyCSVBucket, KeyTemplateBucket, KeyTemplateFile,
	KeyDestinationBucket, KeySNSTopic, KeyLensAlias, KeyRowConcurrency,
	KeyAnalyticsBucket, KeyAnalyticsPrefix, KeyGlueDatabase, KeyAthenaTable,
	KeyAthenaWorkgroup, KeyAthenaOutput, KeyLogLevel,
}

var defaults = map[string]string{
	KeyLensAlias:       "wellarchitected",
	KeyRowConcurrency:  "4",
	KeyAnalyticsPrefix: "risk_extract/",
	KeyAthenaWorkgroup: "primary",
	KeyLogLevel:        "info",
}

type SSMClient interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// Config holds the settings of every stage. Each stage calls Require for the
// keys it cannot run without.
type Config struct {
	RiskTable         string
	CSVBucket         string
	TemplateBucket    string
	TemplateFile      string
	DestinationBucket string
	SNSTopic          string
	LensAlias         string
	RowConcurrency    int
	AnalyticsBucket   string
	AnalyticsPrefix   string
	GlueDatabase      string
	AthenaTable       string
	AthenaWorkgroup   string
	AthenaOutput      string
	LogLevel          string

	values map[string]string
}

// Load reads settings from the environment. When SSM_PARAMETER_PREFIX is set
// and ssmc is not nil, keys missing from the environment are looked up under
// that prefix (e.g. /wareport/prod/DYNAMODB_TABLE).
func Load(ctx context.Context, ssmc SSMClient) (*Config, error) {
	values := map[string]string{}
	for _, k := range allKeys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			values[k] = v
		}
	}

	prefix := strings.TrimSpace(os.Getenv(KeySSMPrefix))
	if prefix != "" && ssmc != nil && len(values) < len(allKeys) {
		params, err := loadParameters(ctx, ssmc, prefix)
		if err != nil {
			return nil, err
		}
		for _, k := range allKeys {
			if _, ok := values[k]; ok {
				continue
			}
			if v := strings.TrimSpace(params[k]); v != "" {
				values[k] = v
			}
		}
	}

	for k, v := range defaults {
		if _, ok := values[k]; !ok {
			values[k] = v
		}
	}

	conc, err := strconv.Atoi(values[KeyRowConcurrency])
	if err != nil || conc <= 0 || conc > 64 {
		return nil, fmt.Errorf("invalid %s %q: want 1..64", KeyRowConcurrency, values[KeyRowConcurrency])
	}

	return &Config{
		RiskTable:         values[KeyRiskTable],
		CSVBucket:         values[KeyCSVBucket],
		TemplateBucket:    values[KeyTemplateBucket],
		TemplateFile:      values[KeyTemplateFile],
		DestinationBucket: values[KeyDestinationBucket],
		SNSTopic:          values[KeySNSTopic],
		LensAlias:         values[KeyLensAlias],
		RowConcurrency:    conc,
		AnalyticsBucket:   values[KeyAnalyticsBucket],
		AnalyticsPrefix:   ensureTrailingSlash(values[KeyAnalyticsPrefix]),
		GlueDatabase:      values[KeyGlueDatabase],
		AthenaTable:       values[KeyAthenaTable],
		AthenaWorkgroup:   values[KeyAthenaWorkgroup],
		AthenaOutput:      values[KeyAthenaOutput],
		LogLevel:          values[KeyLogLevel],
		values:            values,
	}, nil
}

// Require returns an error naming every key that has no value.
func (c *Config) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if strings.TrimSpace(c.values[k]) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env: %s", strings.Join(missing, ", "))
	}
	return nil
}

// loadParameters returns the parameters under prefix keyed by their last path
// segment.
func loadParameters(ctx context.Context, ssmc SSMClient, prefix string) (map[string]string, error) {
	out := map[string]string{}
	var next *string
	for {
		page, err := ssmc.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			WithDecryption: aws.Bool(true),
			NextToken:      next,
		})
		if err != nil {
			return nil, fmt.Errorf("ssm GetParametersByPath %s: %w", prefix, err)
		}
		for _, p := range page.Parameters {
			name := aws.ToString(p.Name)
			if i := strings.LastIndex(name, "/"); i >= 0 {
				name = name[i+1:]
			}
			out[name] = aws.ToString(p.Value)
		}
		if aws.ToString(page.NextToken) == "" {
			break
		}
		next = page.NextToken
	}
	return out, nil
}

func ensureTrailingSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
