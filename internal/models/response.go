package models

import (
	"encoding/json"
	"time"
)

// SurveyResponse is one respondent's submission.
// DeviceFingerprint is never serialized back to clients.
type SurveyResponse struct {
	ID                string    `json:"id"`
	SurveyID          string    `json:"surveyId"`
	LinkToken         *string   `json:"linkToken,omitempty"`
	DeviceFingerprint string    `json:"-"`
	SubmittedAt       time.Time `json:"submittedAt"`
	Answers           []Answer  `json:"answers"`
}

// Answer holds a raw JSON value whose shape depends on the question type:
// a string for text and single choice, a string array for multiple choice,
// a number for rating and number questions.
type Answer struct {
	QuestionID string          `json:"questionId"`
	Value      json.RawMessage `json:"value"`
}
