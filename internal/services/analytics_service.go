package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Responses"

type AnalyticsService struct {
	responses *ResponseService
	surveys   *SurveyService
	logger    *slog.Logger
}

func NewAnalyticsService(responses *ResponseService, surveys *SurveyService, logger *slog.Logger) *AnalyticsService {
	return &AnalyticsService{responses: responses, surveys: surveys, logger: logger}
}

// Summarize aggregates all responses of a survey the actor manages
func (s *AnalyticsService) Summarize(ctx context.Context, actor Actor, surveyID string) (*models.SurveyAnalytics, error) {
	survey, err := s.surveys.Get(ctx, actor, surveyID)
	if err != nil {
		return nil, err
	}
	responses, err := s.responses.List(ctx, actor, surveyID)
	if err != nil {
		return nil, err
	}
	return summarize(survey, responses), nil
}

func summarize(survey *models.Survey, responses []*models.SurveyResponse) *models.SurveyAnalytics {
	result := &models.SurveyAnalytics{
		SurveyID:       survey.ID,
		TotalResponses: len(responses),
		ResponsesByDay: make([]models.DailyCount, 0),
		Questions:      make([]models.QuestionSummary, 0, len(survey.Questions)),
	}

	perDay := make(map[string]int)
	for _, r := range responses {
		submitted := r.SubmittedAt
		if result.FirstResponseAt == nil || submitted.Before(*result.FirstResponseAt) {
			result.FirstResponseAt = &submitted
		}
		if result.LastResponseAt == nil || submitted.After(*result.LastResponseAt) {
			result.LastResponseAt = &submitted
		}
		perDay[submitted.UTC().Format("2006-01-02")]++
	}
	for day, count := range perDay {
		result.ResponsesByDay = append(result.ResponsesByDay, models.DailyCount{Date: day, Count: count})
	}
	sort.Slice(result.ResponsesByDay, func(i, j int) bool {
		return result.ResponsesByDay[i].Date < result.ResponsesByDay[j].Date
	})

	byQuestion := make(map[string][]json.RawMessage, len(survey.Questions))
	for _, r := range responses {
		for _, a := range r.Answers {
			byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a.Value)
		}
	}

	for _, q := range survey.Questions {
		result.Questions = append(result.Questions, summarizeQuestion(q, byQuestion[q.ID]))
	}
	return result
}

func summarizeQuestion(q models.Question, values []json.RawMessage) models.QuestionSummary {
	summary := models.QuestionSummary{
		QuestionID: q.ID,
		Prompt:     q.Prompt,
		Type:       q.Type,
		Answered:   len(values),
	}

	switch q.Type {
	case models.QuestionSingleChoice, models.QuestionMultipleChoice:
		summary.OptionCounts = make(map[string]int, len(q.Options))
		for _, opt := range q.Options {
			summary.OptionCounts[opt] = 0
		}
		for _, v := range values {
			for _, choice := range decodeChoices(v) {
				summary.OptionCounts[choice]++
			}
		}

	case models.QuestionRating, models.QuestionNumber:
		var sum float64
		var n int
		if q.Type == models.QuestionRating {
			summary.OptionCounts = make(map[string]int)
		}
		for _, v := range values {
			var number float64
			if err := json.Unmarshal(v, &number); err != nil {
				continue
			}
			sum += number
			n++
			if summary.OptionCounts != nil {
				summary.OptionCounts[strconv.FormatFloat(number, 'f', -1, 64)]++
			}
		}
		if n > 0 {
			avg := sum / float64(n)
			summary.Average = &avg
		}

	default:
		summary.TextAnswers = make([]string, 0, len(values))
		for _, v := range values {
			var text string
			if err := json.Unmarshal(v, &text); err == nil {
				summary.TextAnswers = append(summary.TextAnswers, text)
			}
		}
	}
	return summary
}

func decodeChoices(v json.RawMessage) []string {
	var many []string
	if err := json.Unmarshal(v, &many); err == nil {
		return many
	}
	var one string
	if err := json.Unmarshal(v, &one); err == nil {
		return []string{one}
	}
	return nil
}

// Export renders one spreadsheet row per response and one column per question
func (s *AnalyticsService) Export(ctx context.Context, actor Actor, surveyID string) (string, []byte, error) {
	survey, err := s.surveys.Get(ctx, actor, surveyID)
	if err != nil {
		return "", nil, err
	}
	responses, err := s.responses.List(ctx, actor, surveyID)
	if err != nil {
		return "", nil, err
	}

	data, err := buildWorkbook(survey, responses)
	if err != nil {
		s.logger.Error("failed to build export", slog.String("survey_id", surveyID), slog.Any("error", err))
		return "", nil, models.ErrInternalServer
	}
	return exportFilename(survey), data, nil
}

func buildWorkbook(survey *models.Survey, responses []*models.SurveyResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"Response ID", "Submitted At"}
	for _, q := range survey.Questions {
		header = append(header, q.Prompt)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, r := range responses {
		answers := make(map[string]json.RawMessage, len(r.Answers))
		for _, a := range r.Answers {
			answers[a.QuestionID] = a.Value
		}

		row := []any{r.ID, r.SubmittedAt.UTC().Format("2006-01-02 15:04:05")}
		for _, q := range survey.Questions {
			row = append(row, cellValue(answers[q.ID]))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// cellValue flattens an answer into something a spreadsheet cell can hold
func cellValue(v json.RawMessage) any {
	if len(v) == 0 {
		return ""
	}
	var number float64
	if err := json.Unmarshal(v, &number); err == nil {
		return number
	}
	var text string
	if err := json.Unmarshal(v, &text); err == nil {
		return text
	}
	var many []string
	if err := json.Unmarshal(v, &many); err == nil {
		return strings.Join(many, "; ")
	}
	return string(v)
}

func exportFilename(survey *models.Survey) string {
	var b strings.Builder
	for _, r := range strings.ToLower(survey.Title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "survey"
	}
	return name + "-responses.xlsx"
}
