package rostersvc

import (
	"context"

	"github.com/darasahq/darasa/core"
)

// canvasService is a declared provider without a live backend.
type canvasService struct{}

var _ core.RosterProvider = (*canvasService)(nil)

func NewCanvasService() *canvasService { return &canvasService{} }

func (svc canvasService) Name() string { return "canvas" }

func (svc canvasService) ListCourses(ctx context.Context, teacherEmail string) ([]core.RosterCourse, error) {
	return nil, core.ErrRosterNotImplemented
}
