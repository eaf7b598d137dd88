package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/noah-isme/essay-eval-api/internal/models"
	"github.com/noah-isme/essay-eval-api/internal/repository"
	"github.com/noah-isme/essay-eval-api/pkg/ai"
)

type stubSubmissionRepo struct {
	created      []*models.Submission
	createErr    error
	byID         map[string]models.Submission
	byIDErr      error
	existing     *models.Submission
	finishParams *repository.FinishEvaluationParams
	finishResult models.Submission
	finishErr    error
	failed       []string
}

func (s *stubSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	if s.createErr != nil {
		return s.createErr
	}
	if submission.ID == "" {
		submission.ID = "submission-1"
	}
	s.created = append(s.created, submission)
	return nil
}

func (s *stubSubmissionRepo) GetByID(ctx context.Context, id string) (models.Submission, error) {
	if s.byIDErr != nil {
		return models.Submission{}, s.byIDErr
	}
	if submission, ok := s.byID[id]; ok {
		return submission, nil
	}
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (s *stubSubmissionRepo) GetByStudentAndComponent(ctx context.Context, studentID uint, componentType string) (models.Submission, error) {
	if s.existing != nil {
		return *s.existing, nil
	}
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (s *stubSubmissionRepo) FinishEvaluation(ctx context.Context, params repository.FinishEvaluationParams) (models.Submission, error) {
	s.finishParams = &params
	if s.finishErr != nil {
		return models.Submission{}, s.finishErr
	}
	return s.finishResult, nil
}

func (s *stubSubmissionRepo) MarkFailed(ctx context.Context, id string) error {
	s.failed = append(s.failed, id)
	return nil
}

type stubRevisionRepo struct {
	created   []*models.Revision
	createErr error
	updateErr error
	statuses  map[string]string
}

func (s *stubRevisionRepo) Create(ctx context.Context, revision *models.Revision) error {
	if s.createErr != nil {
		return s.createErr
	}
	if revision.ID == "" {
		revision.ID = "revision-1"
	}
	s.created = append(s.created, revision)
	return nil
}

func (s *stubRevisionRepo) UpdateStatus(ctx context.Context, id, status string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.statuses == nil {
		s.statuses = map[string]string{}
	}
	s.statuses[id] = status
	return nil
}

type stubEvaluator struct {
	result ai.EssayEvaluation
	err    error
	essays []string
}

func (s *stubEvaluator) Evaluate(ctx context.Context, essay string) (ai.EssayEvaluation, error) {
	s.essays = append(s.essays, essay)
	if s.err != nil {
		return ai.EssayEvaluation{}, s.err
	}
	return s.result, nil
}

func newTestEvaluationService(subs *stubSubmissionRepo, revs *stubRevisionRepo, evaluator ai.Evaluator) *evaluationService {
	return &evaluationService{
		submissions: subs,
		revisions:   revs,
		evaluator:   evaluator,
		logger:      zerolog.Nop(),
		tracer:      otel.Tracer("test"),
		now:         time.Now,
	}
}

func TestEvaluateCommitsResultWithAnnotatedText(t *testing.T) {
	score := 8
	feedback := "solid work"
	subs := &stubSubmissionRepo{
		finishResult: models.Submission{
			ID:       "submission-1",
			Score:    &score,
			Feedback: &feedback,
			Status:   models.SubmissionStatusCompleted,
		},
	}
	revs := &stubRevisionRepo{}
	evaluator := &stubEvaluator{result: ai.EssayEvaluation{
		Score:      8,
		Feedback:   "solid work",
		Highlights: []string{"foo"},
	}}
	svc := newTestEvaluationService(subs, revs, evaluator)

	result, err := svc.Evaluate(context.Background(), EvaluationRequest{
		SubmissionID: "submission-1",
		Text:         "foo bar",
	})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusCompleted, result.Status)

	require.Equal(t, []string{"foo bar"}, evaluator.essays)
	require.NotNil(t, subs.finishParams)
	require.Equal(t, "submission-1", subs.finishParams.SubmissionID)
	require.Nil(t, subs.finishParams.RevisionID)
	require.Equal(t, 8, subs.finishParams.Score)
	require.Equal(t, "solid work", subs.finishParams.Feedback)
	require.Equal(t, "<b>foo</b> bar", subs.finishParams.AnnotatedText)
	require.JSONEq(t, `["foo"]`, string(subs.finishParams.Highlights))
	require.Len(t, subs.finishParams.TraceID, 26)
	require.Empty(t, subs.failed)
}

func TestEvaluateMarksSubmissionFailedWhenScoringFails(t *testing.T) {
	subs := &stubSubmissionRepo{}
	revs := &stubRevisionRepo{}
	evaluator := &stubEvaluator{err: context.DeadlineExceeded}
	svc := newTestEvaluationService(subs, revs, evaluator)

	_, err := svc.Evaluate(context.Background(), EvaluationRequest{
		SubmissionID: "submission-1",
		Text:         "foo bar",
	})
	require.Error(t, err)
	require.Equal(t, KindDependency, KindOf(err))
	require.Equal(t, []string{"submission-1"}, subs.failed)
	require.Nil(t, subs.finishParams)
	require.Empty(t, revs.statuses)
}

func TestEvaluateMarksRevisionFailedToo(t *testing.T) {
	subs := &stubSubmissionRepo{}
	revs := &stubRevisionRepo{}
	evaluator := &stubEvaluator{err: context.DeadlineExceeded}
	svc := newTestEvaluationService(subs, revs, evaluator)

	revisionID := "revision-1"
	_, err := svc.Evaluate(context.Background(), EvaluationRequest{
		SubmissionID: "submission-1",
		Text:         "foo bar",
		RevisionID:   &revisionID,
	})
	require.Error(t, err)
	require.Equal(t, models.SubmissionStatusFailed, revs.statuses["revision-1"])
}

func TestEvaluateMarksFailedWhenPersistenceFails(t *testing.T) {
	subs := &stubSubmissionRepo{finishErr: gorm.ErrInvalidTransaction}
	revs := &stubRevisionRepo{}
	evaluator := &stubEvaluator{result: ai.EssayEvaluation{Score: 5, Feedback: "ok", Highlights: []string{}}}
	svc := newTestEvaluationService(subs, revs, evaluator)

	_, err := svc.Evaluate(context.Background(), EvaluationRequest{
		SubmissionID: "submission-1",
		Text:         "foo bar",
	})
	require.Error(t, err)
	require.Equal(t, KindTransactional, KindOf(err))
	require.Equal(t, []string{"submission-1"}, subs.failed)
}
