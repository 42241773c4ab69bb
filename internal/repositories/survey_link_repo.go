package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/surveyhub/internal/database"
	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/google/uuid"
)

type SurveyLinkRepository struct {
	db *database.DB
}

func NewSurveyLinkRepository(db *database.DB) *SurveyLinkRepository {
	return &SurveyLinkRepository{db: db}
}

const linkColumns = `id, survey_id, token, short_code, expires_at, created_at`

func scanLinkRow(scanner rowScanner) (*models.SurveyLink, error) {
	var l models.SurveyLink
	if err := scanner.Scan(&l.ID, &l.SurveyID, &l.Token, &l.ShortCode, &l.ExpiresAt, &l.CreatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &l, nil
}

func (r *SurveyLinkRepository) Create(ctx context.Context, link *models.SurveyLink) (*models.SurveyLink, error) {
	link.ID = uuid.New().String()
	link.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO survey_links (id, survey_id, token, short_code, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + linkColumns

	return scanLinkRow(r.db.Pool.QueryRow(ctx, query,
		link.ID, link.SurveyID, link.Token, link.ShortCode, link.ExpiresAt, link.CreatedAt,
	))
}

// ShortCodeInUse reports whether any link, expired or not, already carries the
// code. Codes are unique for the life of the row.
func (r *SurveyLinkRepository) ShortCodeInUse(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM survey_links WHERE short_code = $1)`
	if err := r.db.Pool.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("check short code: %w", err)
	}
	return exists, nil
}

// GetByShortCode returns the link with the code, expired or not, so callers
// can tell an expired link apart from an unknown one.
func (r *SurveyLinkRepository) GetByShortCode(ctx context.Context, code string) (*models.SurveyLink, error) {
	query := `SELECT ` + linkColumns + ` FROM survey_links WHERE short_code = $1`
	return scanLinkRow(r.db.Pool.QueryRow(ctx, query, code))
}

func (r *SurveyLinkRepository) GetByToken(ctx context.Context, token string) (*models.SurveyLink, error) {
	query := `SELECT ` + linkColumns + ` FROM survey_links WHERE token = $1`
	return scanLinkRow(r.db.Pool.QueryRow(ctx, query, token))
}

func (r *SurveyLinkRepository) ListBySurvey(ctx context.Context, surveyID string) ([]*models.SurveyLink, error) {
	query := `SELECT ` + linkColumns + ` FROM survey_links WHERE survey_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query survey links: %w", err)
	}
	defer rows.Close()

	links := make([]*models.SurveyLink, 0)
	for rows.Next() {
		l, err := scanLinkRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan survey link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return links, nil
}
