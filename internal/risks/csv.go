package risks

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"wareport/internal/apperr"

	"github.com/m-mizutani/goerr/v2"
)

// CSV columns written by the exporter. The last two are optional on read so
// extracts made without choice enrichment still load.
var CSVHeader = []string{"WorkloadId", "QuestionId", "Risk", "SelectedChoices", "Notes", "ChoiceIds", "ChoiceTitles"}

const requiredColumns = 5

// CSVRow is the string projection of a RiskRecord. List cells hold JSON arrays.
type CSVRow struct {
	WorkloadID      string
	QuestionID      string
	Risk            string
	SelectedChoices string
	Notes           string
	ChoiceIDs       string
	ChoiceTitles    string
	HasChoices      bool
}

// ToCSVRow serialises r. List fields are always written, empty as "[]".
func ToCSVRow(r RiskRecord) CSVRow {
	return CSVRow{
		WorkloadID:      r.WorkloadID,
		QuestionID:      r.QuestionID,
		Risk:            string(r.Risk),
		SelectedChoices: FormatList(r.SelectedChoices),
		Notes:           r.Notes,
		ChoiceIDs:       FormatList(r.ChoiceIDs),
		ChoiceTitles:    FormatList(r.ChoiceTitles),
		HasChoices:      true,
	}
}

// Record parses the list cells back. Rows without choice columns yield nil
// choice slices.
func (c CSVRow) Record() (RiskRecord, error) {
	rec := RiskRecord{
		WorkloadID: c.WorkloadID,
		QuestionID: c.QuestionID,
		Risk:       Risk(c.Risk),
		Notes:      c.Notes,
	}
	var err error
	if rec.SelectedChoices, err = ParseList(c.SelectedChoices); err != nil {
		return rec, err
	}
	if !c.HasChoices {
		return rec, nil
	}
	if rec.ChoiceIDs, err = ParseList(c.ChoiceIDs); err != nil {
		return rec, err
	}
	if rec.ChoiceTitles, err = ParseList(c.ChoiceTitles); err != nil {
		return rec, err
	}
	return rec, nil
}

// FormatList encodes items as a JSON array. nil encodes as "[]".
func FormatList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// ParseList decodes a JSON array of strings. Anything else, including an empty
// cell, is an apperr.ErrParse.
func ParseList(cell string) ([]string, error) {
	var out []string
	dec := json.NewDecoder(strings.NewReader(cell))
	if err := dec.Decode(&out); err != nil {
		return nil, apperr.Wrap(apperr.ErrParse, err, "list cell is not a JSON string array", goerr.V("cell", cell))
	}
	if dec.More() {
		return nil, apperr.New(apperr.ErrParse, "trailing data after list", goerr.V("cell", cell))
	}
	if out == nil {
		return nil, apperr.New(apperr.ErrParse, "list cell is null", goerr.V("cell", cell))
	}
	return out, nil
}

// WriteCSV writes the header and one line per record.
func WriteCSV(w io.Writer, records []RiskRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := ToCSVRow(r)
		if err := cw.Write([]string{
			row.WorkloadID, row.QuestionID, row.Risk, row.SelectedChoices,
			row.Notes, row.ChoiceIDs, row.ChoiceTitles,
		}); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.QuestionID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads rows by header name. Column order does not matter; the five
// base columns must be present.
func ReadCSV(r io.Reader) ([]CSVRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.New(apperr.ErrParse, "csv is empty")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrParse, err, "read csv header")
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, h := range CSVHeader[:requiredColumns] {
		if _, ok := idx[h]; !ok {
			return nil, apperr.New(apperr.ErrParse, "csv header missing column", goerr.V("column", h))
		}
	}
	_, hasIDs := idx["ChoiceIds"]
	_, hasTitles := idx["ChoiceTitles"]

	var rows []CSVRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrParse, err, "read csv row", goerr.V("line", line))
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		rows = append(rows, CSVRow{
			WorkloadID:      get("WorkloadId"),
			QuestionID:      get("QuestionId"),
			Risk:            get("Risk"),
			SelectedChoices: get("SelectedChoices"),
			Notes:           get("Notes"),
			ChoiceIDs:       get("ChoiceIds"),
			ChoiceTitles:    get("ChoiceTitles"),
			HasChoices:      hasIDs && hasTitles,
		})
	}
	return rows, nil
}
