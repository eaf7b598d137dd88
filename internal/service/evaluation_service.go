package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/essay-eval-api/internal/models"
	"github.com/noah-isme/essay-eval-api/internal/repository"
	"github.com/noah-isme/essay-eval-api/pkg/ai"
)

// EvaluationRequest identifies one evaluation attempt. RevisionID is set
// only when the attempt belongs to a re-evaluation.
type EvaluationRequest struct {
	SubmissionID string
	Text         string
	RevisionID   *string
}

// EvaluationService runs the remote scoring call, annotates the text with
// the returned highlights, and persists the outcome.
type EvaluationService interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (models.Submission, error)
}

type evaluationService struct {
	submissions repository.SubmissionRepository
	revisions   repository.RevisionRepository
	evaluator   ai.Evaluator
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewEvaluationService constructs an EvaluationService instance.
func NewEvaluationService(submissions repository.SubmissionRepository, revisions repository.RevisionRepository, evaluator ai.Evaluator, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		submissions: submissions,
		revisions:   revisions,
		evaluator:   evaluator,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/essay-eval-api/internal/service/evaluation"),
		now:         time.Now,
	}
}

// Evaluate scores the text, annotates it, and commits the audit log row
// together with the submission update in one transaction. On any failure
// the submission (and revision, when present) is marked FAILED with a
// separate compensating write, and the original failure propagates.
func (s *evaluationService) Evaluate(ctx context.Context, req EvaluationRequest) (models.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.run", trace.WithAttributes(
		attribute.String("evaluation.submission_id", req.SubmissionID),
	))
	defer span.End()

	start := s.now()

	result, err := s.evaluator.Evaluate(ctx, req.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring failed")
		return models.Submission{}, s.fail(ctx, req, newError(KindDependency, "essay scoring failed", err))
	}

	annotated := HighlightText(req.Text, result.Highlights)
	latency := s.now().Sub(start).Milliseconds()

	rawResult, err := json.Marshal(result)
	if err != nil {
		span.RecordError(err)
		return models.Submission{}, s.fail(ctx, req, newError(KindInternal, "encode scoring result", err))
	}
	rawHighlights, err := json.Marshal(result.Highlights)
	if err != nil {
		span.RecordError(err)
		return models.Submission{}, s.fail(ctx, req, newError(KindInternal, "encode highlights", err))
	}

	traceID := ulid.Make().String()
	submission, err := s.submissions.FinishEvaluation(ctx, repository.FinishEvaluationParams{
		SubmissionID:  req.SubmissionID,
		RevisionID:    req.RevisionID,
		Result:        rawResult,
		LatencyMS:     latency,
		TraceID:       traceID,
		Score:         result.Score,
		Feedback:      result.Feedback,
		Highlights:    rawHighlights,
		AnnotatedText: annotated,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return models.Submission{}, s.fail(ctx, req, newError(KindTransactional, "persist evaluation result", err))
	}

	span.SetAttributes(
		attribute.Int("evaluation.score", result.Score),
		attribute.Int64("evaluation.latency_ms", latency),
	)
	s.logger.Info().
		Str("submission_id", req.SubmissionID).
		Str("trace_id", traceID).
		Int("score", result.Score).
		Int64("latency_ms", latency).
		Msg("evaluation completed")

	return submission, nil
}

// fail applies the compensating FAILED writes. Compensation errors are
// logged only; the caller always receives the original failure.
func (s *evaluationService) fail(ctx context.Context, req EvaluationRequest, original *Error) error {
	if err := s.submissions.MarkFailed(ctx, req.SubmissionID); err != nil {
		s.logger.Error().Err(err).Str("submission_id", req.SubmissionID).Msg("failed to mark submission FAILED")
	}
	if req.RevisionID != nil {
		if err := s.revisions.UpdateStatus(ctx, *req.RevisionID, models.SubmissionStatusFailed); err != nil {
			s.logger.Error().Err(err).Str("revision_id", *req.RevisionID).Msg("failed to mark revision FAILED")
		}
	}

	s.logger.Error().Err(original).Str("submission_id", req.SubmissionID).Msg("evaluation failed")

	return original
}
