package dto

// RevisionCreateRequest asks for a re-evaluation of an existing submission.
type RevisionCreateRequest struct {
	SubmissionID string `json:"submissionId" validate:"required"`
}

// SeedStudentsRequest carries the token-guarded student seeding payload.
type SeedStudentsRequest struct {
	Token    string   `json:"token" validate:"required"`
	Students []string `json:"students" validate:"required,min=1,dive,required"`
}
