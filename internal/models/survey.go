package models

import "time"

// QuestionType enumerates the supported answer formats
type QuestionType string

const (
	QuestionShortText      QuestionType = "short_text"
	QuestionLongText       QuestionType = "long_text"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionRating         QuestionType = "rating"
	QuestionNumber         QuestionType = "number"
)

// DefaultRatingScale is used when a rating question does not declare one
const DefaultRatingScale = 5

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionShortText, QuestionLongText, QuestionSingleChoice,
		QuestionMultipleChoice, QuestionRating, QuestionNumber:
		return true
	}
	return false
}

// HasOptions reports whether answers are picked from Question.Options
func (t QuestionType) HasOptions() bool {
	return t == QuestionSingleChoice || t == QuestionMultipleChoice
}

type Survey struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Published   bool       `json:"published"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Question struct {
	ID       string       `json:"id"`
	SurveyID string       `json:"surveyId"`
	Position int          `json:"position"`
	Type     QuestionType `json:"type"`
	Prompt   string       `json:"prompt"`
	Required bool         `json:"required"`
	Options  []string     `json:"options,omitempty"`
	Scale    int          `json:"scale,omitempty"`
}

// QuestionByID indexes the survey's questions
func (s *Survey) QuestionByID() map[string]*Question {
	index := make(map[string]*Question, len(s.Questions))
	for i := range s.Questions {
		index[s.Questions[i].ID] = &s.Questions[i]
	}
	return index
}
