package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/essay-eval-api/internal/models"
)

// SubmissionCreateRequest describes the multipart payload for an essay
// submission. The video file travels alongside as a separate form part.
type SubmissionCreateRequest struct {
	StudentID     uint   `form:"studentId" validate:"required,gt=0"`
	StudentName   string `form:"studentName" validate:"required"`
	ComponentType string `form:"componentType" validate:"required"`
	SubmitText    string `form:"submitText" validate:"required"`
}

// MediaURLs carries the time-limited read URLs of the derived artifacts.
type MediaURLs struct {
	Video string `json:"video,omitempty"`
	Audio string `json:"audio,omitempty"`
}

// SubmissionResponse is returned for both submission and revision requests.
type SubmissionResponse struct {
	StudentID     uint       `json:"studentId"`
	StudentName   string     `json:"studentName"`
	Score         *int       `json:"score,omitempty"`
	Feedback      string     `json:"feedback,omitempty"`
	Highlights    []string   `json:"highlights"`
	SubmitText    string     `json:"submitText"`
	AnnotatedText string     `json:"annotatedText,omitempty"`
	MediaURL      *MediaURLs `json:"mediaUrl,omitempty"`
	APILatency    int64      `json:"apiLatency"`
}

// NewSubmissionResponse converts a Submission model into the response DTO.
func NewSubmissionResponse(submission models.Submission, studentName string, latencyMS int64, mediaURLs *MediaURLs) SubmissionResponse {
	response := SubmissionResponse{
		StudentID:   submission.StudentID,
		StudentName: studentName,
		Score:       submission.Score,
		Highlights:  submission.HighlightList(),
		SubmitText:  submission.SubmitText,
		MediaURL:    mediaURLs,
		APILatency:  latencyMS,
	}

	if submission.Feedback != nil {
		response.Feedback = *submission.Feedback
	}
	if submission.AnnotatedText != nil {
		response.AnnotatedText = *submission.AnnotatedText
	}

	return response
}

// NewMediaURLs assembles the URL pair from stored media rows, or nil when
// the submission carries no media.
func NewMediaURLs(media []models.SubmissionMedia) *MediaURLs {
	if len(media) == 0 {
		return nil
	}

	urls := &MediaURLs{}
	for _, row := range media {
		switch row.Type {
		case models.MediaTypeVideo:
			urls.Video = row.URL
		case models.MediaTypeAudio:
			urls.Audio = row.URL
		}
	}

	return urls
}

// SubmissionLogResponse serializes one audit trail entry.
type SubmissionLogResponse struct {
	ID         string          `json:"id"`
	RevisionID *string         `json:"revisionId,omitempty"`
	Result     json.RawMessage `json:"result"`
	LatencyMS  int64           `json:"latencyMs"`
	TraceID    string          `json:"traceId"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// NewSubmissionLogResponses converts log models into DTOs.
func NewSubmissionLogResponses(logs []models.SubmissionLog) []SubmissionLogResponse {
	responses := make([]SubmissionLogResponse, 0, len(logs))
	for _, row := range logs {
		responses = append(responses, SubmissionLogResponse{
			ID:         row.ID,
			RevisionID: row.RevisionID,
			Result:     json.RawMessage(row.Result),
			LatencyMS:  row.LatencyMS,
			TraceID:    row.TraceID,
			CreatedAt:  row.CreatedAt,
		})
	}
	return responses
}
