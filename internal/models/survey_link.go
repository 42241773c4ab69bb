package models

import "time"

// SurveyLink is a shareable, expiring access grant to a survey.
// Links are never mutated; a new link supersedes an old one.
type SurveyLink struct {
	ID        string    `json:"id"`
	SurveyID  string    `json:"surveyId"`
	Token     string    `json:"token"`
	ShortCode *string   `json:"shortCode,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func (l *SurveyLink) IsActive(now time.Time) bool {
	return now.Before(l.ExpiresAt)
}
