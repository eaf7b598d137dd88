package service

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/essay-eval-api/internal/dto"
	"github.com/noah-isme/essay-eval-api/internal/models"
	"github.com/noah-isme/essay-eval-api/internal/repository"
	"github.com/noah-isme/essay-eval-api/pkg/media"
	"github.com/noah-isme/essay-eval-api/pkg/storage"
)

// MediaProcessor abstracts the media derivation pipeline and its
// companion cleanup operation.
type MediaProcessor interface {
	Process(ctx context.Context, videoPath string) ([]media.Artifact, error)
	Cleanup(filename string) error
}

// SubmissionService owns the end-to-end submission creation path.
type SubmissionService interface {
	Create(ctx context.Context, payload dto.SubmissionCreateRequest, video *multipart.FileHeader) (dto.SubmissionResponse, error)
	Logs(ctx context.Context, submissionID string) ([]dto.SubmissionLogResponse, error)
}

type submissionService struct {
	students    repository.StudentRepository
	submissions repository.SubmissionRepository
	logs        repository.SubmissionLogRepository
	evaluation  EvaluationService
	processor   MediaProcessor
	uploader    storage.Uploader
	locks       *SubmissionLock
	validator   *validator.Validate
	mediaDir    string
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance. The lock
// may be nil, in which case the duplicate check relies on the database
// unique index alone.
func NewSubmissionService(
	students repository.StudentRepository,
	submissions repository.SubmissionRepository,
	logs repository.SubmissionLogRepository,
	evaluation EvaluationService,
	processor MediaProcessor,
	uploader storage.Uploader,
	locks *SubmissionLock,
	validate *validator.Validate,
	mediaDir string,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		students:    students,
		submissions: submissions,
		logs:        logs,
		evaluation:  evaluation,
		processor:   processor,
		uploader:    uploader,
		locks:       locks,
		validator:   validate,
		mediaDir:    mediaDir,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/essay-eval-api/internal/service/submission"),
		now:         time.Now,
	}
}

// Create runs the submission state machine: student verification,
// duplicate check, optional media derivation and upload, persistence,
// evaluation. When a video was supplied the media cleanup runs exactly
// once on the way out, whatever the outcome.
func (s *submissionService) Create(ctx context.Context, payload dto.SubmissionCreateRequest, video *multipart.FileHeader) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.create", trace.WithAttributes(
		attribute.Int64("submission.student_id", int64(payload.StudentID)),
		attribute.String("submission.component_type", payload.ComponentType),
	))
	defer span.End()

	start := s.now()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	student, err := s.students.GetByID(ctx, payload.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, newError(KindInvalidInput, "submitter information does not match", err)
		}
		return dto.SubmissionResponse{}, newError(KindTransactional, "look up student", err)
	}
	if student.Name != payload.StudentName {
		return dto.SubmissionResponse{}, newError(KindInvalidInput, "submitter information does not match", nil)
	}

	if s.locks != nil {
		release, ok, err := s.locks.Acquire(ctx, payload.StudentID, payload.ComponentType)
		if err != nil {
			return dto.SubmissionResponse{}, newError(KindDependency, "acquire submission lock", err)
		}
		if !ok {
			return dto.SubmissionResponse{}, newError(KindConflict, "assignment already submitted", nil)
		}
		defer release()
	}

	_, err = s.submissions.GetByStudentAndComponent(ctx, payload.StudentID, payload.ComponentType)
	if err == nil {
		return dto.SubmissionResponse{}, newError(KindConflict, "assignment already submitted", nil)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionResponse{}, newError(KindTransactional, "check for duplicate submission", err)
	}

	var mediaRows []models.SubmissionMedia
	var mediaURLs *dto.MediaURLs
	if video != nil {
		storedName := requestUniqueName(video.Filename)
		defer func() {
			if err := s.processor.Cleanup(storedName); err != nil {
				s.logger.Error().Err(err).Str("file", storedName).Msg("media cleanup failed")
			}
		}()

		mediaRows, mediaURLs, err = s.deriveAndUploadMedia(ctx, video, storedName)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "media derivation failed")
			return dto.SubmissionResponse{}, err
		}
	}

	submission := models.Submission{
		StudentID:     payload.StudentID,
		ComponentType: payload.ComponentType,
		SubmitText:    payload.SubmitText,
		Status:        models.SubmissionStatusPending,
		Media:         mediaRows,
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.SubmissionResponse{}, newError(KindConflict, "assignment already submitted", err)
		}
		return dto.SubmissionResponse{}, newError(KindTransactional, "persist submission", err)
	}
	span.SetAttributes(attribute.String("submission.id", submission.ID))

	evaluated, err := s.evaluation.Evaluate(ctx, EvaluationRequest{
		SubmissionID: submission.ID,
		Text:         payload.SubmitText,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
		return dto.SubmissionResponse{}, err
	}

	latency := s.now().Sub(start).Milliseconds()
	s.logger.Info().
		Str("submission_id", submission.ID).
		Int64("latency_ms", latency).
		Msg("submission created")

	return dto.NewSubmissionResponse(evaluated, student.Name, latency, mediaURLs), nil
}

func (s *submissionService) Logs(ctx context.Context, submissionID string) ([]dto.SubmissionLogResponse, error) {
	if _, err := s.submissions.GetByID(ctx, submissionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, "submission not found", err)
		}
		return nil, newError(KindTransactional, "look up submission", err)
	}

	logs, err := s.logs.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, newError(KindTransactional, "list submission logs", err)
	}

	return dto.NewSubmissionLogResponses(logs), nil
}

// deriveAndUploadMedia stores the upload under its request-unique name,
// runs the derivation pipeline, and uploads both artifacts.
func (s *submissionService) deriveAndUploadMedia(ctx context.Context, video *multipart.FileHeader, storedName string) ([]models.SubmissionMedia, *dto.MediaURLs, error) {
	storedPath, err := s.saveUpload(video, storedName)
	if err != nil {
		return nil, nil, err
	}

	artifacts, err := s.processor.Process(ctx, storedPath)
	if err != nil {
		return nil, nil, newError(KindDependency, "media processing failed", err)
	}

	rows := make([]models.SubmissionMedia, 0, len(artifacts))
	urls := &dto.MediaURLs{}
	for _, artifact := range artifacts {
		url, err := s.uploader.Upload(ctx, artifact.Path, artifact.Filename)
		if err != nil {
			return nil, nil, newError(KindDependency, "artifact upload failed", err)
		}

		rows = append(rows, models.SubmissionMedia{
			Type:     artifact.Kind,
			Filename: artifact.Filename,
			URL:      url,
			Size:     artifact.Size,
			Format:   artifact.Format,
		})
		switch artifact.Kind {
		case models.MediaTypeVideo:
			urls.Video = url
		case models.MediaTypeAudio:
			urls.Audio = url
		}
	}

	return rows, urls, nil
}

func (s *submissionService) saveUpload(video *multipart.FileHeader, storedName string) (string, error) {
	source, err := video.Open()
	if err != nil {
		return "", newError(KindInvalidInput, "open uploaded video", err)
	}
	defer source.Close()

	storedPath := filepath.Join(s.mediaDir, storedName)
	target, err := os.Create(storedPath)
	if err != nil {
		return "", newError(KindDependency, "store uploaded video", err)
	}
	if _, err := io.Copy(target, source); err != nil {
		target.Close()
		return "", newError(KindDependency, "store uploaded video", err)
	}
	if err := target.Close(); err != nil {
		return "", newError(KindDependency, "store uploaded video", err)
	}

	mime, err := mimetype.DetectFile(storedPath)
	if err != nil {
		return "", newError(KindDependency, "detect upload type", err)
	}
	if !strings.HasPrefix(mime.String(), "video/") {
		return "", newError(KindInvalidInput, "uploaded file is not a video", nil)
	}

	return storedPath, nil
}

// requestUniqueName derives the on-disk name from a collision-resistant
// token, never from user input, so the cleanup prefix match can only ever
// touch this request's files.
func requestUniqueName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = ".mp4"
	}
	return uuid.NewString() + ext
}
