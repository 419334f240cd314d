package assistsvc

import (
	"context"

	"github.com/darasahq/darasa/core"
)

// FakeService returns canned results; tests swap in error values to exercise
// upstream failure paths.
type FakeService struct {
	Feedback     core.Feedback
	Standards    []string
	Fields       core.LessonPlanFields
	FeedbackErr  error
	StandardsErr error
	FieldsErr    error
}

var _ core.AssistService = (*FakeService)(nil)

func (svc *FakeService) GenerateFeedback(ctx context.Context, data core.ObservationData) (core.Feedback, error) {
	return svc.Feedback, svc.FeedbackErr
}

func (svc *FakeService) SuggestStandards(ctx context.Context, query core.StandardsQuery) ([]string, error) {
	return svc.Standards, svc.StandardsErr
}

func (svc *FakeService) ExtractLessonPlanFields(ctx context.Context, documentText string) (core.LessonPlanFields, error) {
	return svc.Fields, svc.FieldsErr
}
