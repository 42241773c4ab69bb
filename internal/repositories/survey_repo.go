package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BradenHooton/surveyhub/internal/database"
	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SurveyRepository struct {
	db *database.DB
}

func NewSurveyRepository(db *database.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

const surveyColumns = `id, owner_id, title, description, published, created_at, updated_at`

func scanSurveyRow(scanner rowScanner) (*models.Survey, error) {
	var s models.Survey
	err := scanner.Scan(&s.ID, &s.OwnerID, &s.Title, &s.Description, &s.Published, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &s, nil
}

// Create inserts the survey and its questions atomically
func (r *SurveyRepository) Create(ctx context.Context, survey *models.Survey) (*models.Survey, error) {
	now := time.Now().UTC()
	survey.ID = uuid.New().String()
	survey.CreatedAt = now
	survey.UpdatedAt = now

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO surveys (id, owner_id, title, description, published, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := tx.Exec(ctx, query,
			survey.ID, survey.OwnerID, survey.Title, survey.Description,
			survey.Published, survey.CreatedAt, survey.UpdatedAt,
		); err != nil {
			return database.MapPostgresError(err)
		}
		return upsertQuestions(ctx, tx, survey)
	})
	if err != nil {
		return nil, err
	}
	return survey, nil
}

func (r *SurveyRepository) GetByID(ctx context.Context, id string) (*models.Survey, error) {
	query := `SELECT ` + surveyColumns + ` FROM surveys WHERE id = $1`
	survey, err := scanSurveyRow(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	questions, err := r.listQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	survey.Questions = questions
	return survey, nil
}

// ListByOwner returns survey headers without questions
func (r *SurveyRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Survey, error) {
	query := `SELECT ` + surveyColumns + ` FROM surveys WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query surveys: %w", err)
	}
	defer rows.Close()

	surveys := make([]*models.Survey, 0)
	for rows.Next() {
		s, err := scanSurveyRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan survey: %w", err)
		}
		surveys = append(surveys, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return surveys, nil
}

// Update replaces title, description and the question list. Questions keep their
// id when the caller supplies it; questions missing from the list are removed.
func (r *SurveyRepository) Update(ctx context.Context, survey *models.Survey) (*models.Survey, error) {
	survey.UpdatedAt = time.Now().UTC()

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE surveys SET title = $1, description = $2, updated_at = $3
			WHERE id = $4
		`
		tag, err := tx.Exec(ctx, query, survey.Title, survey.Description, survey.UpdatedAt, survey.ID)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		if err := upsertQuestions(ctx, tx, survey); err != nil {
			return err
		}

		keep := make([]string, 0, len(survey.Questions))
		for _, q := range survey.Questions {
			keep = append(keep, q.ID)
		}
		_, err = tx.Exec(ctx, `DELETE FROM questions WHERE survey_id = $1 AND NOT (id::text = ANY($2::text[]))`, survey.ID, keep)
		return database.MapPostgresError(err)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, survey.ID)
}

func (r *SurveyRepository) SetPublished(ctx context.Context, id string, published bool) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE surveys SET published = $1, updated_at = $2 WHERE id = $3`,
		published, time.Now().UTC(), id,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *SurveyRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM surveys WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *SurveyRepository) listQuestions(ctx context.Context, surveyID string) ([]models.Question, error) {
	query := `
		SELECT id, survey_id, position, type, prompt, required, options, scale
		FROM questions WHERE survey_id = $1 ORDER BY position
	`
	rows, err := r.db.Pool.Query(ctx, query, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	questions := make([]models.Question, 0)
	for rows.Next() {
		var (
			q       models.Question
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.SurveyID, &q.Position, &q.Type, &q.Prompt, &q.Required, &options, &q.Scale); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode question options: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return questions, nil
}

// upsertQuestions assigns ids and positions, then writes every question of the survey
func upsertQuestions(ctx context.Context, tx pgx.Tx, survey *models.Survey) error {
	query := `
		INSERT INTO questions (id, survey_id, position, type, prompt, required, options, scale)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			position = EXCLUDED.position,
			type = EXCLUDED.type,
			prompt = EXCLUDED.prompt,
			required = EXCLUDED.required,
			options = EXCLUDED.options,
			scale = EXCLUDED.scale
		WHERE questions.survey_id = EXCLUDED.survey_id
	`
	for i := range survey.Questions {
		q := &survey.Questions[i]
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		q.SurveyID = survey.ID
		q.Position = i + 1

		options := q.Options
		if options == nil {
			options = []string{}
		}
		encoded, err := json.Marshal(options)
		if err != nil {
			return fmt.Errorf("encode question options: %w", err)
		}

		if _, err := tx.Exec(ctx, query, q.ID, q.SurveyID, q.Position, q.Type, q.Prompt, q.Required, encoded, q.Scale); err != nil {
			return database.MapPostgresError(err)
		}
	}
	return nil
}
