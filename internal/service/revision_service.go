package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/essay-eval-api/internal/dto"
	"github.com/noah-isme/essay-eval-api/internal/models"
	"github.com/noah-isme/essay-eval-api/internal/repository"
)

// RevisionService re-runs the evaluation against an existing submission's
// stored text. Media is never re-derived; the stored URLs are reused.
type RevisionService interface {
	Create(ctx context.Context, submissionID string) (dto.SubmissionResponse, error)
}

type revisionService struct {
	submissions repository.SubmissionRepository
	revisions   repository.RevisionRepository
	evaluation  EvaluationService
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewRevisionService constructs a RevisionService instance.
func NewRevisionService(submissions repository.SubmissionRepository, revisions repository.RevisionRepository, evaluation EvaluationService, logger zerolog.Logger) RevisionService {
	return &revisionService{
		submissions: submissions,
		revisions:   revisions,
		evaluation:  evaluation,
		logger:      logger.With().Str("component", "revision_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/essay-eval-api/internal/service/revision"),
		now:         time.Now,
	}
}

func (s *revisionService) Create(ctx context.Context, submissionID string) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "revision.create", trace.WithAttributes(
		attribute.String("revision.submission_id", submissionID),
	))
	defer span.End()

	start := s.now()

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, newError(KindNotFound, "submission not found", err)
		}
		return dto.SubmissionResponse{}, newError(KindTransactional, "look up submission", err)
	}

	revision := models.Revision{SubmissionID: submissionID}
	if err := s.revisions.Create(ctx, &revision); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, newError(KindTransactional, "create revision", err)
	}
	span.SetAttributes(attribute.String("revision.id", revision.ID))

	if _, err := s.evaluation.Evaluate(ctx, EvaluationRequest{
		SubmissionID: submissionID,
		Text:         submission.SubmitText,
		RevisionID:   &revision.ID,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
		return dto.SubmissionResponse{}, err
	}

	if err := s.revisions.UpdateStatus(ctx, revision.ID, models.SubmissionStatusCompleted); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, newError(KindTransactional, "complete revision", err)
	}

	reloaded, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, newError(KindTransactional, "reload submission", err)
	}

	latency := s.now().Sub(start).Milliseconds()
	s.logger.Info().
		Str("submission_id", submissionID).
		Str("revision_id", revision.ID).
		Int64("latency_ms", latency).
		Msg("revision completed")

	return dto.NewSubmissionResponse(reloaded, reloaded.Student.Name, latency, dto.NewMediaURLs(reloaded.Media)), nil
}
