package handlers

import (
	"encoding/json"
	"net/http"
)

// StageResponse is the {statusCode, body} shape returned by the extractor,
// the generator and the notifier. Body holds a JSON document or plain text.
type StageResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// StageRequest carries the previous stage's response body.
type StageRequest struct {
	Body string `json:"body"`
}

// ReportEnvelope is passed from the CSV exporter to the report generator.
// MilestoneNumber must reach the generator unchanged.
type ReportEnvelope struct {
	StatusCode      int    `json:"statusCode,omitempty"`
	CSVKey          string `json:"csv_s3_key"`
	WorkloadID      string `json:"workload_id"`
	MilestoneNumber int32  `json:"milestone_number"`
}

type extractResult struct {
	Message         string `json:"message"`
	WorkloadID      string `json:"workload_id"`
	MilestoneNumber int32  `json:"milestone_number"`
}

type reportResult struct {
	Message         string `json:"message"`
	WorkloadID      string `json:"workloadId"`
	ReportFilename  string `json:"reportFilename"`
	MilestoneName   string `json:"milestoneName"`
	MilestoneNumber int32  `json:"milestone_number"`
	S3Bucket        string `json:"s3Bucket"`
}

type errorBody struct {
	Error string `json:"error"`
}

func jsonResponse(status int, v any) (StageResponse, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return StageResponse{}, err
	}
	return StageResponse{StatusCode: status, Body: string(b)}, nil
}

func okResponse(v any) (StageResponse, error) {
	return jsonResponse(http.StatusOK, v)
}
