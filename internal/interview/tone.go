package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Tone describes the emotional register of an answer and how the interviewer
// should adjust.
type Tone struct {
	Mood           string `json:"tone"`
	Confident      bool   `json:"confident"`
	SuggestedStyle string `json:"suggested_style"`
}

// ToneAnalyzer detects tone per answer. Failures degrade to the zero value;
// tone is advisory telemetry, never load-bearing for the pipeline.
type ToneAnalyzer struct {
	gen    JSONGenerator
	logger *slog.Logger
}

func NewToneAnalyzer(gen JSONGenerator) *ToneAnalyzer {
	return &ToneAnalyzer{gen: gen, logger: slog.Default()}
}

// Analyze returns the detected tone, or the zero value on any failure.
func (t *ToneAnalyzer) Analyze(ctx context.Context, answer string) Tone {
	if answer == "" {
		return Tone{}
	}

	prompt := fmt.Sprintf(`Analyze the following candidate answer.

1. What is the emotional tone? (e.g. confident, unsure, formal, casual)
2. Does the candidate sound confident?
3. Suggest how the interviewer should respond: more supportive, more formal, or more challenging.

Return a JSON object: {"tone": "...", "confident": true, "suggested_style": "..."}

Answer:
"""
%s
"""`, answer)

	raw, err := t.gen.GenerateJSON(ctx, prompt)
	if err != nil {
		t.logger.Warn("tone analysis failed", "error", err)
		return Tone{}
	}

	var result Tone
	if err := json.Unmarshal(raw, &result); err != nil {
		t.logger.Warn("tone analysis returned unexpected shape", "error", err)
		return Tone{}
	}
	return result
}
