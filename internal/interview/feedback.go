package interview

import (
	"context"
	"fmt"
	"strings"
)

// FeedbackGenerator produces short coaching commentary per answer. It is a
// pass-through to the gateway; callers decide how to degrade on failure.
type FeedbackGenerator struct {
	gen TextGenerator
}

func NewFeedbackGenerator(gen TextGenerator) *FeedbackGenerator {
	return &FeedbackGenerator{gen: gen}
}

// Feedback returns 2-3 sentences of coaching commentary for the answer.
func (f *FeedbackGenerator) Feedback(ctx context.Context, question, answer string) (string, error) {
	prompt := fmt.Sprintf(`You are a career coach.

Review the candidate's answer to the interview question and provide helpful
feedback to improve clarity, structure, or depth. Avoid generic praise or
criticism: reference specifics of what the candidate actually said.

Question:
%s

Answer:
%s

Give feedback in 2-3 sentences.`, question, answer)

	out, err := f.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating feedback: %w", err)
	}
	return strings.TrimSpace(out), nil
}
