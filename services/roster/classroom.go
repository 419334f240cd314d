// Package rostersvc implements core.RosterProvider backends.
package rostersvc

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

// classroomService reads courses from the Google Classroom REST API.
type classroomService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ core.RosterProvider = (*classroomService)(nil)

func NewClassroomService(conf *core.Config) *classroomService {
	baseURL := strings.TrimRight(conf.Roster.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://classroom.googleapis.com/v1"
	}
	return &classroomService{
		baseURL: baseURL,
		apiKey:  conf.Roster.APIKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (svc classroomService) Name() string { return "classroom" }

type (
	classroomCourse struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Section string `json:"section"`
		Room    string `json:"room"`
	}

	classroomCourseList struct {
		Courses []classroomCourse `json:"courses"`
	}
)

func (svc classroomService) ListCourses(ctx context.Context, teacherEmail string) ([]core.RosterCourse, error) {
	q := make(url.Values)
	q.Set("teacherId", teacherEmail)
	q.Set("courseStates", "ACTIVE")

	req, err := http.NewRequest(http.MethodGet, svc.baseURL+"/courses?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating course request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+svc.apiKey)

	res, err := svc.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "listing courses")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		data, _ := ioutil.ReadAll(res.Body)
		return nil, errors.Errorf("listing courses - status: %d - Body: %s", res.StatusCode, data)
	}

	var list classroomCourseList
	if err := json.NewDecoder(res.Body).Decode(&list); err != nil {
		return nil, errors.Wrap(err, "decoding course list")
	}

	courses := make([]core.RosterCourse, 0, len(list.Courses))
	for _, c := range list.Courses {
		courses = append(courses, core.RosterCourse{
			ID:      c.ID,
			Name:    c.Name,
			Section: c.Section,
			Room:    c.Room,
		})
	}
	return courses, nil
}
