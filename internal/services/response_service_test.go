package services

import (
	"context"
	"errors"
	"testing"

	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResponseService(repo *MockResponseRepository, survey *models.Survey) *ResponseService {
	surveys := NewSurveyService(surveyRepoWith(survey), discardLogger())
	return NewResponseService(repo, surveys, discardLogger(), testAuditLogger())
}

func validAnswers() []models.Answer {
	return []models.Answer{
		answer("q-text", `"Ada"`),
		answer("q-single", `"Red"`),
		answer("q-multi", `["Go","SQL"]`),
		answer("q-rating", `4`),
		answer("q-number", `7.5`),
	}
}

func TestResponseService_Submit_Success(t *testing.T) {
	var stored *models.SurveyResponse
	repo := &MockResponseRepository{
		CreateGuardedFunc: func(ctx context.Context, resp *models.SurveyResponse) (*models.SurveyResponse, error) {
			stored = resp
			resp.ID = "r-1"
			return resp, nil
		},
	}
	svc := newResponseService(repo, NewTestSurvey("s-1", "owner-1"))
	token := "tok-1"

	resp, err := svc.Submit(context.Background(), Submission{
		SurveyID:          "s-1",
		LinkToken:         &token,
		DeviceFingerprint: "fp",
		Answers:           validAnswers(),
	})
	require.NoError(t, err)
	assert.Equal(t, "r-1", resp.ID)
	assert.Equal(t, "fp", stored.DeviceFingerprint)
	assert.Equal(t, &token, stored.LinkToken)
	assert.Len(t, stored.Answers, 5)
}

func TestResponseService_Submit_Duplicate(t *testing.T) {
	repo := &MockResponseRepository{
		CreateGuardedFunc: func(ctx context.Context, resp *models.SurveyResponse) (*models.SurveyResponse, error) {
			return nil, models.ErrDuplicateSubmission
		},
	}
	svc := newResponseService(repo, NewTestSurvey("s-1", "owner-1"))

	_, err := svc.Submit(context.Background(), Submission{SurveyID: "s-1", DeviceFingerprint: "fp", Answers: validAnswers()})
	assert.ErrorIs(t, err, models.ErrDuplicateSubmission)
}

func TestResponseService_Submit_ReusedIDIsValidationError(t *testing.T) {
	repo := &MockResponseRepository{
		CreateGuardedFunc: func(ctx context.Context, resp *models.SurveyResponse) (*models.SurveyResponse, error) {
			return nil, models.ErrConflict
		},
	}
	svc := newResponseService(repo, NewTestSurvey("s-1", "owner-1"))

	_, err := svc.Submit(context.Background(), Submission{
		ID:                "9b2f4c1e-6d3a-4f8b-a1c2-3e4d5f6a7b8c",
		SurveyID:          "s-1",
		DeviceFingerprint: "fp",
		Answers:           validAnswers(),
	})

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "id", validationErr.Field)
	assert.NotErrorIs(t, err, models.ErrDuplicateSubmission)
}

func TestResponseService_Submit_StorageFailure(t *testing.T) {
	repo := &MockResponseRepository{
		CreateGuardedFunc: func(ctx context.Context, resp *models.SurveyResponse) (*models.SurveyResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := newResponseService(repo, NewTestSurvey("s-1", "owner-1"))

	_, err := svc.Submit(context.Background(), Submission{SurveyID: "s-1", Answers: validAnswers()})
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestResponseService_Submit_SurveyState(t *testing.T) {
	draft := NewTestSurvey("s-1", "owner-1")
	draft.Published = false
	svc := newResponseService(&MockResponseRepository{}, draft)

	_, err := svc.Submit(context.Background(), Submission{SurveyID: "s-1", Answers: validAnswers()})
	assert.ErrorIs(t, err, models.ErrSurveyNotPublished)

	_, err = svc.Submit(context.Background(), Submission{SurveyID: "missing", Answers: validAnswers()})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Submit(context.Background(), Submission{SurveyID: "", Answers: validAnswers()})
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestResponseService_Submit_AnswerValidation(t *testing.T) {
	replace := func(questionID, raw string) []models.Answer {
		answers := validAnswers()
		for i := range answers {
			if answers[i].QuestionID == questionID {
				answers[i] = answer(questionID, raw)
			}
		}
		return answers
	}

	tests := []struct {
		name    string
		id      string
		answers []models.Answer
		wantErr bool
	}{
		{name: "all valid", answers: validAnswers()},
		{name: "client supplied uuid", id: "3f2b8c1e-8d4a-4c1b-9e57-2b7f0a6d9c11", answers: validAnswers()},
		{name: "malformed id", id: "not-a-uuid", answers: validAnswers(), wantErr: true},
		{name: "unknown question", answers: append(validAnswers(), answer("q-other", `"x"`)), wantErr: true},
		{name: "question answered twice", answers: append(validAnswers(), answer("q-text", `"again"`)), wantErr: true},
		{name: "text must be string", answers: replace("q-text", `42`), wantErr: true},
		{name: "single choice not an option", answers: replace("q-single", `"Green"`), wantErr: true},
		{name: "multiple choice duplicate", answers: replace("q-multi", `["Go","Go"]`), wantErr: true},
		{name: "multiple choice not array", answers: replace("q-multi", `"Go"`), wantErr: true},
		{name: "rating above scale", answers: replace("q-rating", `6`), wantErr: true},
		{name: "rating fractional", answers: replace("q-rating", `3.5`), wantErr: true},
		{name: "number must be numeric", answers: replace("q-number", `"seven"`), wantErr: true},
		{name: "required rating null", answers: replace("q-rating", `null`), wantErr: true},
		{name: "optional text null", answers: replace("q-text", `null`)},
		{name: "required missing", answers: []models.Answer{answer("q-rating", `3`)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newResponseService(&MockResponseRepository{}, NewTestSurvey("s-1", "owner-1"))

			_, err := svc.Submit(context.Background(), Submission{ID: tt.id, SurveyID: "s-1", Answers: tt.answers})
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrBadRequest)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestResponseService_Submit_DropsEmptyAnswers(t *testing.T) {
	var stored *models.SurveyResponse
	repo := &MockResponseRepository{
		CreateGuardedFunc: func(ctx context.Context, resp *models.SurveyResponse) (*models.SurveyResponse, error) {
			stored = resp
			return resp, nil
		},
	}
	svc := newResponseService(repo, NewTestSurvey("s-1", "owner-1"))

	_, err := svc.Submit(context.Background(), Submission{SurveyID: "s-1", Answers: []models.Answer{
		answer("q-text", `"   "`),
		answer("q-single", `"Blue"`),
		answer("q-multi", `[]`),
		answer("q-rating", `5`),
	}})
	require.NoError(t, err)
	require.Len(t, stored.Answers, 2)
	assert.Equal(t, "q-single", stored.Answers[0].QuestionID)
	assert.Equal(t, "q-rating", stored.Answers[1].QuestionID)
}

func TestResponseService_List_RequiresOwnership(t *testing.T) {
	svc := newResponseService(&MockResponseRepository{}, NewTestSurvey("s-1", "owner-1"))

	_, err := svc.List(context.Background(), ownerActor("intruder"), "s-1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	responses, err := svc.List(context.Background(), ownerActor("owner-1"), "s-1")
	require.NoError(t, err)
	assert.Empty(t, responses)
}
