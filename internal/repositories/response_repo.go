package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/surveyhub/internal/database"
	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// deviceIndex is the unique index on (survey_id, device_fingerprint)
const deviceIndex = "uq_survey_responses_device"

type ResponseRepository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewResponseRepository(db *database.DB, logger *slog.Logger) *ResponseRepository {
	return &ResponseRepository{db: db, logger: logger}
}

// CreateGuarded stores a response at most once per (survey, device fingerprint).
//
// The whole check-then-insert runs in one transaction on a dedicated connection.
// A transaction-scoped advisory lock on the pair serializes concurrent submissions
// from the same device, since FOR UPDATE on a missing row locks nothing. The unique
// index on (survey_id, device_fingerprint) backs this up; a violation of it is also
// reported as ErrDuplicateSubmission. Any other unique violation, such as a reused
// client-supplied id, is ErrConflict.
//
// When the device_fingerprint column is missing the guard is skipped with a warning
// and the response is stored without deduplication.
func (r *ResponseRepository) CreateGuarded(ctx context.Context, resp *models.SurveyResponse) (*models.SurveyResponse, error) {
	prepareResponse(resp)

	err := r.db.WithConnTransaction(ctx, func(tx pgx.Tx) error {
		lockKey := resp.SurveyID + ":" + resp.DeviceFingerprint
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
			return fmt.Errorf("acquire submission lock: %w", err)
		}

		var existingID string
		err := tx.QueryRow(ctx,
			`SELECT id FROM survey_responses WHERE survey_id = $1 AND device_fingerprint = $2 FOR UPDATE`,
			resp.SurveyID, resp.DeviceFingerprint,
		).Scan(&existingID)
		switch {
		case err == nil:
			return models.ErrDuplicateSubmission
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO survey_responses (id, survey_id, link_token, device_fingerprint, submitted_at)
			VALUES ($1, $2, $3, $4, $5)
		`, resp.ID, resp.SurveyID, resp.LinkToken, resp.DeviceFingerprint, resp.SubmittedAt)
		if err != nil {
			return err
		}

		return insertAnswers(ctx, tx, resp)
	})

	switch {
	case err == nil:
		return resp, nil
	case errors.Is(err, models.ErrDuplicateSubmission), database.IsUniqueViolationOn(err, deviceIndex):
		return nil, models.ErrDuplicateSubmission
	case database.IsUndefinedColumn(err):
		r.logger.Warn("device_fingerprint column missing, storing response without duplicate check",
			slog.String("survey_id", resp.SurveyID),
		)
		return r.createUnguarded(ctx, resp)
	default:
		return nil, database.MapPostgresError(err)
	}
}

// createUnguarded runs in a fresh transaction because the failed one is aborted
func (r *ResponseRepository) createUnguarded(ctx context.Context, resp *models.SurveyResponse) (*models.SurveyResponse, error) {
	err := r.db.WithConnTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO survey_responses (id, survey_id, link_token, submitted_at)
			VALUES ($1, $2, $3, $4)
		`, resp.ID, resp.SurveyID, resp.LinkToken, resp.SubmittedAt)
		if err != nil {
			return err
		}
		return insertAnswers(ctx, tx, resp)
	})
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return resp, nil
}

func prepareResponse(resp *models.SurveyResponse) {
	if resp.ID == "" {
		resp.ID = uuid.New().String()
	}
	resp.SubmittedAt = time.Now().UTC()
}

func insertAnswers(ctx context.Context, tx pgx.Tx, resp *models.SurveyResponse) error {
	if len(resp.Answers) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range resp.Answers {
		batch.Queue(
			`INSERT INTO response_answers (response_id, question_id, value) VALUES ($1, $2, $3)`,
			resp.ID, a.QuestionID, []byte(a.Value),
		)
	}
	return tx.SendBatch(ctx, batch).Close()
}

// ListBySurvey returns responses with their answers, oldest first
func (r *ResponseRepository) ListBySurvey(ctx context.Context, surveyID string) ([]*models.SurveyResponse, error) {
	query := `
		SELECT r.id, r.survey_id, r.link_token, r.submitted_at, a.question_id, a.value
		FROM survey_responses r
		LEFT JOIN response_answers a ON a.response_id = r.id
		WHERE r.survey_id = $1
		ORDER BY r.submitted_at, r.id
	`
	rows, err := r.db.Pool.Query(ctx, query, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query responses: %w", err)
	}
	defer rows.Close()

	responses := make([]*models.SurveyResponse, 0)
	var current *models.SurveyResponse
	for rows.Next() {
		var (
			id, sid     string
			linkToken   *string
			submittedAt time.Time
			questionID  *string
			value       []byte
		)
		if err := rows.Scan(&id, &sid, &linkToken, &submittedAt, &questionID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}

		if current == nil || current.ID != id {
			current = &models.SurveyResponse{
				ID:          id,
				SurveyID:    sid,
				LinkToken:   linkToken,
				SubmittedAt: submittedAt,
				Answers:     make([]models.Answer, 0),
			}
			responses = append(responses, current)
		}
		if questionID != nil {
			current.Answers = append(current.Answers, models.Answer{QuestionID: *questionID, Value: value})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return responses, nil
}

func (r *ResponseRepository) CountBySurvey(ctx context.Context, surveyID string) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM survey_responses WHERE survey_id = $1`, surveyID).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}
