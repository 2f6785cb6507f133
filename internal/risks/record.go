package risks

// Risk is the severity the review service assigns to an answer.
type Risk string

const (
	RiskHigh          Risk = "HIGH"
	RiskMedium        Risk = "MEDIUM"
	RiskLow           Risk = "LOW"
	RiskNone          Risk = "NONE"
	RiskUnanswered    Risk = "UNANSWERED"
	RiskNotApplicable Risk = "NOT_APPLICABLE"
)

// Reportable reports whether answers with this risk are persisted and reported.
func (r Risk) Reportable() bool {
	return r == RiskHigh || r == RiskMedium
}

// RiskRecord is one HIGH/MEDIUM answer of a workload, keyed by
// (WorkloadId, QuestionId).
type RiskRecord struct {
	WorkloadID      string   `dynamodbav:"WorkloadId"`
	QuestionID      string   `dynamodbav:"QuestionId"`
	LensAlias       string   `dynamodbav:"LensAlias,omitempty"`
	PillarID        string   `dynamodbav:"PillarId,omitempty"`
	Risk            Risk     `dynamodbav:"Risk"`
	SelectedChoices []string `dynamodbav:"SelectedChoices"`
	Notes           string   `dynamodbav:"Notes"`
	ChoiceIDs       []string `dynamodbav:"ChoiceIds"`
	ChoiceTitles    []string `dynamodbav:"ChoiceTitles"`
	UpdatedAt       string   `dynamodbav:"UpdatedAt,omitempty"`
}
