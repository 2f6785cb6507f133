package review

import (
	"context"
	"strings"

	"wareport/internal/apperr"
	"wareport/internal/risks"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/wellarchitected"
	watypes "github.com/aws/aws-sdk-go-v2/service/wellarchitected/types"
	"github.com/m-mizutani/goerr/v2"
)

type WellArchitectedAPI interface {
	GetMilestone(ctx context.Context, params *wellarchitected.GetMilestoneInput, optFns ...func(*wellarchitected.Options)) (*wellarchitected.GetMilestoneOutput, error)
	GetWorkload(ctx context.Context, params *wellarchitected.GetWorkloadInput, optFns ...func(*wellarchitected.Options)) (*wellarchitected.GetWorkloadOutput, error)
	ListAnswers(ctx context.Context, params *wellarchitected.ListAnswersInput, optFns ...func(*wellarchitected.Options)) (*wellarchitected.ListAnswersOutput, error)
	GetAnswer(ctx context.Context, params *wellarchitected.GetAnswerInput, optFns ...func(*wellarchitected.Options)) (*wellarchitected.GetAnswerOutput, error)
}

// Choice is one selectable option of a question.
type Choice struct {
	ID    string
	Title string
}

// Answer is the part of a review answer the pipeline uses.
type Answer struct {
	QuestionID      string
	PillarID        string
	QuestionTitle   string
	Risk            risks.Risk
	Notes           string
	Choices         []Choice
	SelectedChoices []string
}

// ChoiceIDs returns the ids of all choices in service order.
func (a Answer) ChoiceIDs() []string {
	out := make([]string, 0, len(a.Choices))
	for _, c := range a.Choices {
		out = append(out, c.ID)
	}
	return out
}

// ChoiceTitles returns the titles of all choices in service order.
func (a Answer) ChoiceTitles() []string {
	out := make([]string, 0, len(a.Choices))
	for _, c := range a.Choices {
		out = append(out, c.Title)
	}
	return out
}

// Client wraps the Well-Architected Tool API. A milestone number of 0 means
// the workload's current state.
type Client struct {
	api WellArchitectedAPI
}

func NewClient(api WellArchitectedAPI) *Client {
	return &Client{api: api}
}

// MilestoneName resolves the display name of a workload milestone.
func (c *Client) MilestoneName(ctx context.Context, workloadID string, milestone int32) (string, error) {
	out, err := c.api.GetMilestone(ctx, &wellarchitected.GetMilestoneInput{
		WorkloadId:      aws.String(workloadID),
		MilestoneNumber: aws.Int32(milestone),
	})
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUpstreamLookup, err, "get milestone",
			goerr.V("workload_id", workloadID), goerr.V("milestone_number", milestone))
	}
	if out.Milestone == nil || strings.TrimSpace(aws.ToString(out.Milestone.MilestoneName)) == "" {
		return "", apperr.New(apperr.ErrUpstreamLookup, "milestone has no name",
			goerr.V("workload_id", workloadID), goerr.V("milestone_number", milestone))
	}
	return aws.ToString(out.Milestone.MilestoneName), nil
}

// Lenses lists the lens aliases attached to a workload.
func (c *Client) Lenses(ctx context.Context, workloadID string) ([]string, error) {
	out, err := c.api.GetWorkload(ctx, &wellarchitected.GetWorkloadInput{
		WorkloadId: aws.String(workloadID),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstreamLookup, err, "get workload", goerr.V("workload_id", workloadID))
	}
	if out.Workload == nil {
		return nil, apperr.New(apperr.ErrUpstreamLookup, "workload not found", goerr.V("workload_id", workloadID))
	}
	return out.Workload.Lenses, nil
}

// EachAnswer pages through all answers of one lens, following NextToken until
// it is exhausted, and calls fn for every answer summary.
func (c *Client) EachAnswer(ctx context.Context, workloadID, lens string, milestone int32, fn func(Answer) error) error {
	var next *string
	for {
		in := &wellarchitected.ListAnswersInput{
			WorkloadId: aws.String(workloadID),
			LensAlias:  aws.String(lens),
			NextToken:  next,
		}
		if milestone > 0 {
			in.MilestoneNumber = aws.Int32(milestone)
		}
		out, err := c.api.ListAnswers(ctx, in)
		if err != nil {
			return apperr.Wrap(apperr.ErrUpstreamLookup, err, "list answers",
				goerr.V("workload_id", workloadID), goerr.V("lens", lens))
		}
		for _, s := range out.AnswerSummaries {
			if err := fn(fromSummary(s)); err != nil {
				return err
			}
		}
		if aws.ToString(out.NextToken) == "" {
			return nil
		}
		next = out.NextToken
	}
}

// Answer fetches the full detail of one question.
func (c *Client) Answer(ctx context.Context, workloadID, lens, questionID string, milestone int32) (Answer, error) {
	in := &wellarchitected.GetAnswerInput{
		WorkloadId: aws.String(workloadID),
		LensAlias:  aws.String(lens),
		QuestionId: aws.String(questionID),
	}
	if milestone > 0 {
		in.MilestoneNumber = aws.Int32(milestone)
	}
	out, err := c.api.GetAnswer(ctx, in)
	if err != nil {
		return Answer{}, apperr.Wrap(apperr.ErrUpstreamLookup, err, "get answer",
			goerr.V("workload_id", workloadID), goerr.V("question_id", questionID))
	}
	if out.Answer == nil {
		return Answer{}, apperr.New(apperr.ErrUpstreamLookup, "answer not found",
			goerr.V("workload_id", workloadID), goerr.V("question_id", questionID))
	}

	a := out.Answer
	return Answer{
		QuestionID:      aws.ToString(a.QuestionId),
		PillarID:        aws.ToString(a.PillarId),
		QuestionTitle:   aws.ToString(a.QuestionTitle),
		Risk:            risks.Risk(a.Risk),
		Notes:           aws.ToString(a.Notes),
		Choices:         fromChoices(a.Choices),
		SelectedChoices: a.SelectedChoices,
	}, nil
}

func fromSummary(s watypes.AnswerSummary) Answer {
	return Answer{
		QuestionID:      aws.ToString(s.QuestionId),
		PillarID:        aws.ToString(s.PillarId),
		QuestionTitle:   aws.ToString(s.QuestionTitle),
		Risk:            risks.Risk(s.Risk),
		Choices:         fromChoices(s.Choices),
		SelectedChoices: s.SelectedChoices,
	}
}

func fromChoices(in []watypes.Choice) []Choice {
	out := make([]Choice, 0, len(in))
	for _, c := range in {
		out = append(out, Choice{ID: aws.ToString(c.ChoiceId), Title: aws.ToString(c.Title)})
	}
	return out
}
