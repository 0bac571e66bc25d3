package interview

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type mockJSONGen struct {
	response string
	err      error
}

func (m *mockJSONGen) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	return json.RawMessage(m.response), nil
}

type mockTextGen struct {
	response string
	err      error
}

func (m *mockTextGen) Generate(ctx context.Context, prompt string) (string, error) {
	return m.response, m.err
}

func checkBounds(t *testing.T, s Score) {
	t.Helper()
	for name, v := range map[string]int{
		"clarity":         s.Clarity,
		"relevance":       s.Relevance,
		"technical_depth": s.TechnicalDepth,
		"confidence":      s.Confidence,
	} {
		if v < 0 || v > 5 {
			t.Errorf("%s = %d, want within [0,5]", name, v)
		}
	}
	if s.Comment == "" {
		t.Error("comment must never be empty")
	}
}

func TestScore_ParsesOracleRating(t *testing.T) {
	scorer := NewScorer(&mockJSONGen{
		response: `{"clarity": 4, "relevance": 5, "technical_depth": 3, "confidence": 4, "comment": "Solid answer with concrete detail."}`,
	})

	got := scorer.Score(context.Background(), "q", "a")
	checkBounds(t, got)
	if got.Clarity != 4 || got.Relevance != 5 || got.TechnicalDepth != 3 || got.Confidence != 4 {
		t.Errorf("Score() = %+v", got)
	}
	if strings.HasPrefix(got.Comment, FallbackComment) {
		t.Error("genuine oracle score must not carry the fallback marker")
	}
}

func TestScore_ToleratesFloatDimensions(t *testing.T) {
	scorer := NewScorer(&mockJSONGen{
		response: `{"clarity": 4.4, "relevance": 4.6, "technical_depth": 2.0, "confidence": 3.5, "comment": "ok"}`,
	})

	got := scorer.Score(context.Background(), "q", "a")
	if got.Clarity != 4 || got.Relevance != 5 || got.TechnicalDepth != 2 || got.Confidence != 4 {
		t.Errorf("Score() = %+v, want rounded dimensions", got)
	}
}

func TestScore_ClampsOutOfRange(t *testing.T) {
	scorer := NewScorer(&mockJSONGen{
		response: `{"clarity": 11, "relevance": -2, "technical_depth": 5, "confidence": 0, "comment": "weird"}`,
	})

	got := scorer.Score(context.Background(), "q", "a")
	checkBounds(t, got)
	if got.Clarity != 5 {
		t.Errorf("Clarity = %d, want clamped to 5", got.Clarity)
	}
	if got.Relevance != 0 {
		t.Errorf("Relevance = %d, want clamped to 0", got.Relevance)
	}
}

func TestScore_GatewayFailureUsesFlaggedDefaults(t *testing.T) {
	scorer := NewScorer(&mockJSONGen{err: errors.New("backends exhausted")})

	got := scorer.Score(context.Background(), "q", "a")
	checkBounds(t, got)
	if got.Clarity != 3 || got.Relevance != 3 || got.TechnicalDepth != 3 || got.Confidence != 3 {
		t.Errorf("Score() = %+v, want neutral defaults", got)
	}
	if !strings.HasPrefix(got.Comment, FallbackComment) {
		t.Errorf("Comment = %q, want %q prefix", got.Comment, FallbackComment)
	}
}

func TestScore_GarbageResponseUsesFlaggedDefaults(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"wrong field types", `{"clarity": "high", "relevance": 3, "technical_depth": 3, "confidence": 3, "comment": "x"}`},
		{"missing dimensions", `{"clarity": 4, "comment": "only one"}`},
		{"unrelated object", `{"foo": "bar"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := NewScorer(&mockJSONGen{response: tt.response})
			got := scorer.Score(context.Background(), "q", "a")
			checkBounds(t, got)
			if !strings.HasPrefix(got.Comment, FallbackComment) {
				t.Errorf("Comment = %q, want fallback marker", got.Comment)
			}
		})
	}
}

func TestScore_EmptyCommentReplaced(t *testing.T) {
	scorer := NewScorer(&mockJSONGen{
		response: `{"clarity": 4, "relevance": 4, "technical_depth": 4, "confidence": 4, "comment": ""}`,
	})
	got := scorer.Score(context.Background(), "q", "a")
	if got.Comment == "" {
		t.Error("empty oracle comment must be replaced")
	}
}

func TestNextQuestion(t *testing.T) {
	q := NewQuestioner(&mockTextGen{response: "  What drew you to Go?  \n"})
	got, err := q.NextQuestion(context.Background(), "resume", "jd", nil, ResumeBased)
	if err != nil {
		t.Fatalf("NextQuestion() error = %v", err)
	}
	if got != "What drew you to Go?" {
		t.Errorf("NextQuestion() = %q", got)
	}
}

func TestNextQuestion_Error(t *testing.T) {
	q := NewQuestioner(&mockTextGen{err: errors.New("down")})
	if _, err := q.NextQuestion(context.Background(), "resume", "jd", nil, Behavioral); err == nil {
		t.Error("NextQuestion() error = nil, want error")
	}
}

func TestFeedback(t *testing.T) {
	f := NewFeedbackGenerator(&mockTextGen{response: "Good structure. Add metrics next time."})
	got, err := f.Feedback(context.Background(), "q", "a")
	if err != nil {
		t.Fatalf("Feedback() error = %v", err)
	}
	if got != "Good structure. Add metrics next time." {
		t.Errorf("Feedback() = %q", got)
	}
}

func TestFeedback_ErrorSurfaces(t *testing.T) {
	f := NewFeedbackGenerator(&mockTextGen{err: errors.New("down")})
	if _, err := f.Feedback(context.Background(), "q", "a"); err == nil {
		t.Error("Feedback() error = nil, want error")
	}
}

func TestToneAnalyze(t *testing.T) {
	ta := NewToneAnalyzer(&mockJSONGen{
		response: `{"tone": "confident", "confident": true, "suggested_style": "more challenging"}`,
	})
	got := ta.Analyze(context.Background(), "I led the migration myself.")
	if got.Mood != "confident" || !got.Confident || got.SuggestedStyle != "more challenging" {
		t.Errorf("Analyze() = %+v", got)
	}
}

func TestToneAnalyze_DegradesToZero(t *testing.T) {
	ta := NewToneAnalyzer(&mockJSONGen{err: errors.New("down")})
	if got := ta.Analyze(context.Background(), "answer"); got != (Tone{}) {
		t.Errorf("Analyze() = %+v, want zero value", got)
	}
}
