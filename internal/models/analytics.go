package models

import "time"

// SurveyAnalytics is the chart-ready aggregate returned for a survey
type SurveyAnalytics struct {
	SurveyID        string            `json:"surveyId"`
	TotalResponses  int               `json:"totalResponses"`
	FirstResponseAt *time.Time        `json:"firstResponseAt,omitempty"`
	LastResponseAt  *time.Time        `json:"lastResponseAt,omitempty"`
	ResponsesByDay  []DailyCount      `json:"responsesByDay"`
	Questions       []QuestionSummary `json:"questions"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type QuestionSummary struct {
	QuestionID   string         `json:"questionId"`
	Prompt       string         `json:"prompt"`
	Type         QuestionType   `json:"type"`
	Answered     int            `json:"answered"`
	OptionCounts map[string]int `json:"optionCounts,omitempty"`
	Average      *float64       `json:"average,omitempty"`
	TextAnswers  []string       `json:"textAnswers,omitempty"`
}
