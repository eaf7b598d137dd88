package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/essay-eval-api/internal/dto"
	"github.com/noah-isme/essay-eval-api/internal/service"
)

type stubRevisionService struct {
	response      dto.SubmissionResponse
	err           error
	submissionIDs []string
}

func (s *stubRevisionService) Create(ctx context.Context, submissionID string) (dto.SubmissionResponse, error) {
	s.submissionIDs = append(s.submissionIDs, submissionID)
	if s.err != nil {
		return dto.SubmissionResponse{}, s.err
	}
	return s.response, nil
}

func newRevisionApp(svc service.RevisionService) *fiber.App {
	app := fiber.New()
	NewRevisionHandler(svc, zerolog.Nop()).Register(app.Group("/revisions"))
	return app
}

func TestRevisionCreateReturnsCreated(t *testing.T) {
	svc := &stubRevisionService{response: dto.SubmissionResponse{StudentID: 7}}
	app := newRevisionApp(svc)

	req := httptest.NewRequest(fiber.MethodPost, "/revisions", strings.NewReader(`{"submissionId":"submission-1"}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, []string{"submission-1"}, svc.submissionIDs)
}

func TestRevisionCreateRequiresSubmissionID(t *testing.T) {
	svc := &stubRevisionService{}
	app := newRevisionApp(svc)

	req := httptest.NewRequest(fiber.MethodPost, "/revisions", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Empty(t, svc.submissionIDs)
}

func TestRevisionCreateMapsNotFound(t *testing.T) {
	svc := &stubRevisionService{err: &service.Error{Kind: service.KindNotFound, Message: "submission not found"}}
	app := newRevisionApp(svc)

	req := httptest.NewRequest(fiber.MethodPost, "/revisions", strings.NewReader(`{"submissionId":"missing"}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
