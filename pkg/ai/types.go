package ai

import "context"

// EssayEvaluation is the structured result returned by the scoring service.
// Highlights holds the exact sentences or words that cost points, in the
// evaluator's authoring order.
type EssayEvaluation struct {
	Score      int      `json:"score"`
	Feedback   string   `json:"feedback"`
	Highlights []string `json:"highlights"`
}

// Evaluator describes an AI model capable of scoring a written essay.
type Evaluator interface {
	Evaluate(ctx context.Context, essay string) (EssayEvaluation, error)
}
