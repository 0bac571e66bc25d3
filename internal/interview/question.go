package interview

import (
	"context"
	"fmt"
	"strings"
)

// TextGenerator produces free-form text from a prompt via the generation gateway.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Questioner generates the next interview question for a slot category.
type Questioner struct {
	gen TextGenerator
}

func NewQuestioner(gen TextGenerator) *Questioner {
	return &Questioner{gen: gen}
}

// NextQuestion asks the oracle for a question of the given category, grounded
// in the resume, job description, and transcript so far.
func (q *Questioner) NextQuestion(ctx context.Context, resumeText, jdText string, transcript []Slot, qt QuestionType) (string, error) {
	out, err := q.gen.Generate(ctx, buildQuestionPrompt(resumeText, jdText, transcript, qt))
	if err != nil {
		return "", fmt.Errorf("generating %s question: %w", qt, err)
	}
	return strings.TrimSpace(out), nil
}
