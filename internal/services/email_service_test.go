package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSESClient struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

func TestAWSSESEmailService_SendSurveyInvitation(t *testing.T) {
	var captured *ses.SendEmailInput
	client := &mockSESClient{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			captured = params
			return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
		},
	}
	svc := NewSESEmailServiceWithClient(client, "noreply@example.com", discardLogger())

	err := svc.SendSurveyInvitation(context.Background(), "guest@example.com", "Team <Pulse>",
		"https://surveys.example.com/s/tok", time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "noreply@example.com", aws.ToString(captured.Source))
	assert.Equal(t, []string{"guest@example.com"}, captured.Destination.ToAddresses)
	html := aws.ToString(captured.Message.Body.Html.Data)
	assert.Contains(t, html, "Team &lt;Pulse&gt;")
	assert.Contains(t, html, "https://surveys.example.com/s/tok")
	assert.True(t, strings.Contains(aws.ToString(captured.Message.Body.Text.Data), "March 8, 2026"))
}

func TestAWSSESEmailService_SendFailure(t *testing.T) {
	client := &mockSESClient{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	svc := NewSESEmailServiceWithClient(client, "noreply@example.com", discardLogger())

	err := svc.SendSurveyInvitation(context.Background(), "guest@example.com", "Survey", "https://x", time.Now())
	assert.Error(t, err)
}
