package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
)

// FallbackComment prefixes the comment of every score produced without a
// usable oracle response. It is the only signal distinguishing a fallback
// default from a genuine mid-scale rating.
const FallbackComment = "Automatic fallback score: "

const (
	scoreMin     = 0
	scoreMax     = 5
	scoreDefault = 3 // midpoint used when the oracle cannot be consulted
)

// Score rates one answer along the four rubric dimensions, each in [0,5].
// Every dimension always holds a defined value so downstream averaging never
// sees missing data.
type Score struct {
	Clarity        int    `json:"clarity"`
	Relevance      int    `json:"relevance"`
	TechnicalDepth int    `json:"technical_depth"`
	Confidence     int    `json:"confidence"`
	Comment        string `json:"comment"`
}

// JSONGenerator produces a JSON object from a prompt via the generation gateway.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error)
}

// Scorer rates question/answer pairs via the oracle with a bounded default
// fallback.
type Scorer struct {
	gen    JSONGenerator
	logger *slog.Logger
}

func NewScorer(gen JSONGenerator) *Scorer {
	return &Scorer{gen: gen, logger: slog.Default()}
}

// Score rates the answer. It never fails: on any gateway or parse error it
// returns the neutral default with a FallbackComment-prefixed comment.
func (s *Scorer) Score(ctx context.Context, question, answer string) Score {
	raw, err := s.gen.GenerateJSON(ctx, scorePrompt(question, answer))
	if err != nil {
		s.logger.Warn("scoring failed, using fallback defaults", "error", err)
		return fallbackScore(err.Error())
	}

	// Dimensions decode as floats to tolerate "4.0"-style oracle output.
	var parsed struct {
		Clarity        *float64 `json:"clarity"`
		Relevance      *float64 `json:"relevance"`
		TechnicalDepth *float64 `json:"technical_depth"`
		Confidence     *float64 `json:"confidence"`
		Comment        string   `json:"comment"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		s.logger.Warn("score has unexpected shape, using fallback defaults", "error", err)
		return fallbackScore(err.Error())
	}
	if parsed.Clarity == nil || parsed.Relevance == nil || parsed.TechnicalDepth == nil || parsed.Confidence == nil {
		s.logger.Warn("score is missing rubric dimensions, using fallback defaults")
		return fallbackScore("response omitted one or more rubric dimensions")
	}

	comment := parsed.Comment
	if comment == "" {
		comment = "No comment provided."
	}
	return Score{
		Clarity:        clampDimension(*parsed.Clarity),
		Relevance:      clampDimension(*parsed.Relevance),
		TechnicalDepth: clampDimension(*parsed.TechnicalDepth),
		Confidence:     clampDimension(*parsed.Confidence),
		Comment:        comment,
	}
}

func fallbackScore(detail string) Score {
	return Score{
		Clarity:        scoreDefault,
		Relevance:      scoreDefault,
		TechnicalDepth: scoreDefault,
		Confidence:     scoreDefault,
		Comment:        FallbackComment + detail,
	}
}

func clampDimension(v float64) int {
	n := int(math.Round(v))
	if n < scoreMin {
		return scoreMin
	}
	if n > scoreMax {
		return scoreMax
	}
	return n
}

func scorePrompt(question, answer string) string {
	return fmt.Sprintf(`You are an AI interview evaluator.

Based on the following question and answer, rate the candidate on:
- clarity (0-5)
- relevance to the question (0-5)
- technical_depth (0-5)
- confidence (0-5)

SCORING POLICY: scores of 0-1 are reserved for answers that are empty, pure
filler, or placeholder text. Any genuine attempt at the question starts from
2, even when weak.

Return a JSON object: {"clarity": N, "relevance": N, "technical_depth": N, "confidence": N, "comment": "short comment"}

Question:
%s

Answer:
%s`, question, answer)
}
