package etl

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wareport/internal/risks"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
)

// RiskExtractRow matches the Glue table columns. dt and workload_id are
// partition keys and live in the object path.
type RiskExtractRow struct {
	MilestoneNumber int32  `parquet:"name=milestone_number, type=INT32"`
	QuestionID      string `parquet:"name=question_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	LensAlias       string `parquet:"name=lens_alias, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Pillar          string `parquet:"name=pillar, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Risk            string `parquet:"name=risk, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	SelectedChoices string `parquet:"name=selected_choices, type=BYTE_ARRAY, convertedtype=UTF8"` // JSON array
	ChoiceCount     int32  `parquet:"name=choice_count, type=INT32"`
	UnselectedCount int32  `parquet:"name=unselected_count, type=INT32"`
	Notes           string `parquet:"name=notes, type=BYTE_ARRAY, convertedtype=UTF8"`
	ExportedAt      string `parquet:"name=exported_at, type=BYTE_ARRAY, convertedtype=UTF8"` // RFC3339
}

type ObjectWriter interface {
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

// RiskExtractWriter writes one Parquet file per export under
//
//	<prefix>dt=YYYY-MM-DD/workload_id=<id>/part-<rand>.parquet
type RiskExtractWriter struct {
	objects ObjectWriter
	bucket  string
	prefix  string
	now     func() time.Time
}

func NewRiskExtractWriter(objects ObjectWriter, bucket, prefix string) *RiskExtractWriter {
	return &RiskExtractWriter{
		objects: objects,
		bucket:  bucket,
		prefix:  ensureTrailingSlash(prefix),
		now:     time.Now,
	}
}

// Rows projects records onto the extract columns.
func Rows(milestone int32, records []risks.RiskRecord, at time.Time) []RiskExtractRow {
	exported := at.UTC().Format(time.RFC3339)
	out := make([]RiskExtractRow, 0, len(records))
	for _, r := range records {
		pillar := ""
		if p, ok := risks.ParsePillar(r.PillarID); ok {
			pillar = string(p)
		}
		out = append(out, RiskExtractRow{
			MilestoneNumber: milestone,
			QuestionID:      r.QuestionID,
			LensAlias:       r.LensAlias,
			Pillar:          pillar,
			Risk:            string(r.Risk),
			SelectedChoices: risks.FormatList(r.SelectedChoices),
			ChoiceCount:     int32(len(r.ChoiceIDs)),
			UnselectedCount: int32(unselected(r.ChoiceIDs, r.SelectedChoices)),
			Notes:           r.Notes,
			ExportedAt:      exported,
		})
	}
	return out
}

func unselected(choices, selected []string) int {
	picked := make(map[string]bool, len(selected))
	for _, id := range selected {
		picked[id] = true
	}
	n := 0
	for _, id := range choices {
		if !picked[id] {
			n++
		}
	}
	return n
}

// Write uploads the extract and returns its key. An empty record set writes
// nothing.
func (w *RiskExtractWriter) Write(ctx context.Context, workloadID string, milestone int32, records []risks.RiskRecord) (string, error) {
	if strings.TrimSpace(w.bucket) == "" {
		return "", fmt.Errorf("missing env ANALYTICS_BUCKET")
	}
	if len(records) == 0 {
		return "", nil
	}

	now := w.now()
	key := fmt.Sprintf("%sdt=%s/workload_id=%s/part-%s.parquet",
		w.prefix,
		now.UTC().Format("2006-01-02"),
		workloadID,
		randHex(8),
	)

	data, err := encodeParquet(Rows(milestone, records, now))
	if err != nil {
		return "", fmt.Errorf("encode extract for workload=%s: %w", workloadID, err)
	}
	if err := w.objects.Put(ctx, w.bucket, key, data, "application/octet-stream"); err != nil {
		return "", err
	}
	return key, nil
}

// encodeParquet writes rows through a temp file, the only sink parquet-go's
// local source offers.
func encodeParquet(rows []RiskExtractRow) ([]byte, error) {
	localPath := filepath.Join(os.TempDir(), "risk_extract_"+randHex(8)+".parquet")
	defer func() { _ = os.Remove(localPath) }()

	fw, err := local.NewLocalFileWriter(localPath)
	if err != nil {
		return nil, fmt.Errorf("parquet file writer: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, new(RiskExtractRow), 1)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.PageSize = 8 * 1024
	pw.CompressionType = 0 // no snappy

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return nil, fmt.Errorf("parquet write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("parquet write stop: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("parquet close: %w", err)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("read parquet tmp: %w", err)
	}
	return data, nil
}

func ensureTrailingSlash(s string) string {
	if s == "" {
		return ""
	}
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func randHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
