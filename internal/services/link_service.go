package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/internal/shortcode"
	pkgauth "github.com/BradenHooton/surveyhub/pkg/auth"
	pkglogger "github.com/BradenHooton/surveyhub/pkg/logger"
)

// SurveyLinkRepository defines the interface for survey link data access
type SurveyLinkRepository interface {
	Create(ctx context.Context, link *models.SurveyLink) (*models.SurveyLink, error)
	GetByShortCode(ctx context.Context, code string) (*models.SurveyLink, error)
	GetByToken(ctx context.Context, token string) (*models.SurveyLink, error)
	ListBySurvey(ctx context.Context, surveyID string) ([]*models.SurveyLink, error)
}

// CodeGenerator yields short codes not held by any stored link
type CodeGenerator interface {
	Next(ctx context.Context) (string, error)
}

type LinkConfig struct {
	BaseURL string
	TTL     time.Duration
}

// LinkResult is the shareable form of a newly created link
type LinkResult struct {
	Token     string    `json:"token"`
	ShortCode string    `json:"shortCode"`
	ExpiresAt time.Time `json:"expiresAt"`
	URL       string    `json:"url"`
	ShortURL  string    `json:"shortUrl"`
}

// ResolvedLink is what a short code points at
type ResolvedLink struct {
	URL      string `json:"url"`
	Token    string `json:"token"`
	SurveyID string `json:"surveyId"`
}

type LinkService struct {
	repo        SurveyLinkRepository
	surveys     *SurveyService
	codes       CodeGenerator
	mailer      EmailSender
	cfg         LinkConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewLinkService(
	repo SurveyLinkRepository,
	surveys *SurveyService,
	codes CodeGenerator,
	mailer EmailSender,
	cfg LinkConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *LinkService {
	return &LinkService{
		repo:        repo,
		surveys:     surveys,
		codes:       codes,
		mailer:      mailer,
		cfg:         cfg,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// CreateLink issues a fresh token and short code for a survey the actor manages.
// Links expire after the configured TTL and are never modified afterwards.
func (s *LinkService) CreateLink(ctx context.Context, actor Actor, surveyID string) (*LinkResult, error) {
	survey, err := s.surveys.Get(ctx, actor, surveyID)
	if err != nil {
		return nil, err
	}
	return s.createFor(ctx, actor, survey)
}

// maxLinkInserts bounds retries when a concurrent insert claims the same short code
const maxLinkInserts = 3

func (s *LinkService) createFor(ctx context.Context, actor Actor, survey *models.Survey) (*LinkResult, error) {
	for attempt := 1; ; attempt++ {
		token, err := pkgauth.GenerateURLToken()
		if err != nil {
			s.logger.Error("failed to generate link token", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		code, err := s.codes.Next(ctx)
		if err != nil {
			s.logger.Error("failed to generate short code", slog.String("survey_id", survey.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		link, err := s.repo.Create(ctx, &models.SurveyLink{
			SurveyID:  survey.ID,
			Token:     token,
			ShortCode: &code,
			ExpiresAt: s.now().UTC().Add(s.cfg.TTL),
		})
		if errors.Is(err, models.ErrConflict) && attempt < maxLinkInserts {
			s.logger.Warn("short code claimed concurrently, retrying",
				slog.String("survey_id", survey.ID), slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			s.logger.Error("failed to create survey link", slog.String("survey_id", survey.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		s.auditLogger.LogSurveyEvent("survey_link_created", survey.ID, actor.UserID, map[string]string{
			"short_code": code,
		})
		return s.toResult(link), nil
	}
}

// ResolveShortCode maps a short code to its survey URL. A malformed code is
// ErrInvalidShortCode, an unknown code ErrNotFound, an expired link
// ErrLinkExpired and an unpublished survey ErrSurveyNotPublished.
func (s *LinkService) ResolveShortCode(ctx context.Context, code string) (*ResolvedLink, error) {
	if !shortcode.IsValid(code) {
		return nil, models.ErrInvalidShortCode
	}

	link, err := s.repo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, s.lookupError(err, "short_code", code)
	}
	if !link.IsActive(s.now()) {
		return nil, models.ErrLinkExpired
	}

	if _, err := s.surveys.GetPublished(ctx, link.SurveyID); err != nil {
		return nil, err
	}

	return &ResolvedLink{
		URL:      s.surveyURL(link.Token),
		Token:    link.Token,
		SurveyID: link.SurveyID,
	}, nil
}

// ResolveToken returns the published survey behind an active link token
func (s *LinkService) ResolveToken(ctx context.Context, token string) (*models.Survey, *models.SurveyLink, error) {
	if token == "" {
		return nil, nil, models.ErrNotFound
	}

	link, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, s.lookupError(err, "token", "")
	}
	if !link.IsActive(s.now()) {
		return nil, nil, models.ErrLinkExpired
	}

	survey, err := s.surveys.GetPublished(ctx, link.SurveyID)
	if err != nil {
		return nil, nil, err
	}
	return survey, link, nil
}

func (s *LinkService) ListLinks(ctx context.Context, actor Actor, surveyID string) ([]*models.SurveyLink, error) {
	if _, err := s.surveys.Get(ctx, actor, surveyID); err != nil {
		return nil, err
	}

	links, err := s.repo.ListBySurvey(ctx, surveyID)
	if err != nil {
		s.logger.Error("failed to list survey links", slog.String("survey_id", surveyID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return links, nil
}

// EmailLink creates one link and mails it to every recipient. It returns the
// link and the number of invitations that were sent.
func (s *LinkService) EmailLink(ctx context.Context, actor Actor, surveyID string, recipients []string) (*LinkResult, int, error) {
	survey, err := s.surveys.Get(ctx, actor, surveyID)
	if err != nil {
		return nil, 0, err
	}
	if !survey.Published {
		return nil, 0, models.ErrSurveyNotPublished
	}

	result, err := s.createFor(ctx, actor, survey)
	if err != nil {
		return nil, 0, err
	}

	sent := 0
	for _, to := range recipients {
		if err := s.mailer.SendSurveyInvitation(ctx, to, survey.Title, result.URL, result.ExpiresAt); err != nil {
			s.logger.Warn("failed to send survey invitation",
				slog.String("survey_id", survey.ID),
				slog.String("email", pkglogger.SanitizedEmail(to)),
				slog.Any("error", err))
			continue
		}
		sent++
	}

	if sent == 0 && len(recipients) > 0 {
		return result, 0, models.ErrInternalServer
	}
	return result, sent, nil
}

func (s *LinkService) toResult(link *models.SurveyLink) *LinkResult {
	result := &LinkResult{
		Token:     link.Token,
		ExpiresAt: link.ExpiresAt,
		URL:       s.surveyURL(link.Token),
	}
	if link.ShortCode != nil {
		result.ShortCode = *link.ShortCode
		result.ShortURL = s.cfg.BaseURL + "/r/" + *link.ShortCode
	}
	return result
}

func (s *LinkService) surveyURL(token string) string {
	return s.cfg.BaseURL + "/s/" + token
}

func (s *LinkService) lookupError(err error, kind, value string) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNotFound
	}
	s.logger.Error("failed to look up survey link", slog.String(kind, value), slog.Any("error", err))
	return models.ErrInternalServer
}

var _ CodeGenerator = (*shortcode.Generator)(nil)
