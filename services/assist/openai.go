// Package assistsvc implements core.AssistService against an OpenAI-compatible
// chat-completions endpoint. Prompts ask for strict JSON and responses are
// decoded into the core types; any transport, status or decoding failure is
// returned as-is for the caller to classify as an upstream error.
package assistsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

// the configured base URL carries the API version, eg. https://api.openai.com/v1
const completionsPath = "/chat/completions"

type openAIService struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ core.AssistService = (*openAIService)(nil)

func NewOpenAIService(conf *core.Config) *openAIService {
	return &openAIService{
		baseURL: strings.TrimRight(conf.Assist.BaseURL, "/"),
		apiKey:  conf.Assist.APIKey,
		model:   conf.Assist.Model,
		client:  &http.Client{Timeout: conf.Assist.Timeout},
	}
}

type (
	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatRequest struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		Temperature float64       `json:"temperature"`
	}

	chatResponse struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
)

// complete posts a system+user prompt pair and returns the raw assistant reply.
func (svc openAIService) complete(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: svc.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding completion request")
	}

	req, err := http.NewRequest(http.MethodPost, svc.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "creating completion request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+svc.apiKey)

	res, err := svc.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "calling completion endpoint")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		data, _ := ioutil.ReadAll(res.Body)
		return "", errors.Errorf("completion endpoint - status: %d - Body: %s", res.StatusCode, data)
	}

	var cr chatResponse
	if err := json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return "", errors.Wrap(err, "decoding completion response")
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}
	return cr.Choices[0].Message.Content, nil
}

// decodeJSON tolerates replies wrapped in markdown code fences.
func decodeJSON(reply string, v interface{}) error {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	return json.Unmarshal([]byte(strings.TrimSpace(reply)), v)
}

func (svc openAIService) GenerateFeedback(ctx context.Context, data core.ObservationData) (core.Feedback, error) {
	prompt, err := json.Marshal(data)
	if err != nil {
		return core.Feedback{}, errors.Wrap(err, "encoding observation data")
	}
	reply, err := svc.complete(ctx,
		`You are an instructional coach. Given a classroom observation as JSON, draft reviewer feedback. `+
			`Respond with a single JSON object: {"strengths": string, "areas_for_growth": string, "additional_comments": string, "confidence": number between 0 and 1}.`,
		string(prompt))
	if err != nil {
		return core.Feedback{}, err
	}
	var fb core.Feedback
	if err := decodeJSON(reply, &fb); err != nil {
		return core.Feedback{}, errors.Wrap(err, "decoding feedback")
	}
	return fb, nil
}

func (svc openAIService) SuggestStandards(ctx context.Context, query core.StandardsQuery) ([]string, error) {
	reply, err := svc.complete(ctx,
		`You map lesson objectives to curriculum standard codes. `+
			`Respond with a single JSON array of standard code strings, most relevant first, at most 10.`,
		fmt.Sprintf("Subject: %s\nGrade level: %s\nObjective: %s", query.Subject, query.GradeLevel, query.Objective))
	if err != nil {
		return nil, err
	}
	var standards []string
	if err := decodeJSON(reply, &standards); err != nil {
		return nil, errors.Wrap(err, "decoding standards")
	}
	return standards, nil
}

func (svc openAIService) ExtractLessonPlanFields(ctx context.Context, documentText string) (core.LessonPlanFields, error) {
	reply, err := svc.complete(ctx,
		`You extract lesson-plan fields from a raw document. `+
			`Respond with a single JSON object: {"title": string, "subject": string, "grade_level": string, "objective": string, "materials": string, "activities": string, "assessment": string}. `+
			`Leave a field empty when the document does not contain it. Never invent content.`,
		documentText)
	if err != nil {
		return core.LessonPlanFields{}, err
	}
	var fields core.LessonPlanFields
	if err := decodeJSON(reply, &fields); err != nil {
		return core.LessonPlanFields{}, errors.Wrap(err, "decoding lesson plan fields")
	}
	return fields, nil
}
