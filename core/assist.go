package core

import "context"

type (
	// ObservationData is the subset of a walkthrough fed to the assistant
	// when drafting reviewer feedback.
	ObservationData struct {
		Subject        string `json:"subject"`
		GradeLevel     string `json:"grade_level"`
		Objective      string `json:"objective"`
		Strengths      string `json:"strengths"`
		AreasForGrowth string `json:"areas_for_growth"`
		Notes          string `json:"notes"`
	}

	// Feedback is the assistant's draft evaluation of an observation.
	Feedback struct {
		Strengths          string  `json:"strengths"`
		AreasForGrowth     string  `json:"areas_for_growth"`
		AdditionalComments string  `json:"additional_comments"`
		Confidence         float64 `json:"confidence"`
	}

	StandardsQuery struct {
		Objective  string `json:"objective" validate:"required"`
		Subject    string `json:"subject"`
		GradeLevel string `json:"grade_level"`
	}

	// LessonPlanFields is a partial lesson-plan record extracted from an
	// uploaded document. Empty fields were not found in the document.
	LessonPlanFields struct {
		Title      string `json:"title"`
		Subject    string `json:"subject"`
		GradeLevel string `json:"grade_level"`
		Objective  string `json:"objective"`
		Materials  string `json:"materials"`
		Activities string `json:"activities"`
		Assessment string `json:"assessment"`
	}

	// AssistService wraps a large-language-model provider. All calls are
	// fallible remote requests with no retry policy; failures are surfaced
	// to the caller as UpstreamError.
	AssistService interface {
		GenerateFeedback(ctx context.Context, data ObservationData) (Feedback, error)
		SuggestStandards(ctx context.Context, query StandardsQuery) ([]string, error)
		ExtractLessonPlanFields(ctx context.Context, documentText string) (LessonPlanFields, error)
	}
)
