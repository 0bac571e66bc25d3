package session

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/jobprep/interviewd/internal/interview"
)

// AverageScore holds per-dimension rubric averages across all answered slots.
type AverageScore struct {
	Clarity        float64 `json:"clarity"`
	Relevance      float64 `json:"relevance"`
	TechnicalDepth float64 `json:"technical_depth"`
	Confidence     float64 `json:"confidence"`
}

// Overall returns the mean of the four dimension averages.
func (a AverageScore) Overall() float64 {
	return round2((a.Clarity + a.Relevance + a.TechnicalDepth + a.Confidence) / 4)
}

// Summary is the persisted final report for a completed session.
type Summary struct {
	SessionID      string           `json:"session_id"`
	UserEmail      string           `json:"user_email"`
	Greeting       string           `json:"greeting,omitempty"`
	Transcript     []interview.Slot `json:"transcript"`
	AverageScore   AverageScore     `json:"average_score"`
	OverallScore   float64          `json:"overall_score"`
	Recommendation string           `json:"recommendation"`
	Telemetry      Telemetry        `json:"telemetry"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Summarize computes the session summary exactly once. The first call
// computes and persists; every later call returns the persisted document
// unchanged, byte for byte.
func (m *Manager) Summarize(ctx context.Context, id string) (json.RawMessage, error) {
	if doc, ok, err := m.deps.Store.GetSummary(id); err != nil {
		return nil, fmt.Errorf("loading summary: %w", err)
	} else if ok {
		return doc, nil
	}

	ms, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	s := ms.s

	// Another caller may have summarized while we waited on the lock.
	if doc, ok, err := m.deps.Store.GetSummary(id); err != nil {
		return nil, fmt.Errorf("loading summary: %w", err)
	} else if ok {
		return doc, nil
	}

	if !s.Completed() {
		return nil, ErrNotCompleted
	}

	m.fillMissingSlotResults(ctx, s)

	avg := averageScores(s.Transcript)
	summary := Summary{
		SessionID:      s.ID,
		UserEmail:      s.UserEmail,
		Greeting:       s.Greeting,
		Transcript:     s.Transcript,
		AverageScore:   avg,
		OverallScore:   avg.Overall(),
		Recommendation: recommendation(avg.Overall()),
		Telemetry:      s.Telemetry,
		CreatedAt:      time.Now().UTC(),
	}

	doc, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}
	if err := m.deps.Store.SaveSummary(s.ID, doc); err != nil {
		return nil, fmt.Errorf("persisting summary: %w", err)
	}

	s.State = StateSummarized
	if err := m.deps.Store.SaveSession(s); err != nil {
		m.logger.Warn("persisting summarized state", "session_id", s.ID, "error", err)
	}
	return doc, nil
}

// fillMissingSlotResults scores and annotates any answered slot that is
// missing a score or feedback. Per-slot failures degrade to the scorer's
// fallback default and a fixed failure text; they never abort the summary.
func (m *Manager) fillMissingSlotResults(ctx context.Context, s *Session) {
	for i := range s.Transcript {
		slot := &s.Transcript[i]
		if !slot.Answered() {
			continue
		}
		if slot.Score == nil {
			score := m.deps.Scorer.Score(ctx, slot.Question, slot.Answer)
			slot.Score = &score
		}
		if slot.Feedback == "" {
			feedback, err := m.deps.Feedback.Feedback(ctx, slot.Question, slot.Answer)
			if err != nil {
				m.logger.Warn("summary feedback degraded", "session_id", s.ID, "slot", i, "error", err)
				feedback = failureFeedback
			}
			slot.Feedback = feedback
		}
	}
}

func averageScores(transcript []interview.Slot) AverageScore {
	var sum AverageScore
	var n int
	for _, slot := range transcript {
		if slot.Score == nil {
			continue
		}
		sum.Clarity += float64(slot.Score.Clarity)
		sum.Relevance += float64(slot.Score.Relevance)
		sum.TechnicalDepth += float64(slot.Score.TechnicalDepth)
		sum.Confidence += float64(slot.Score.Confidence)
		n++
	}
	if n == 0 {
		return AverageScore{}
	}
	return AverageScore{
		Clarity:        round2(sum.Clarity / float64(n)),
		Relevance:      round2(sum.Relevance / float64(n)),
		TechnicalDepth: round2(sum.TechnicalDepth / float64(n)),
		Confidence:     round2(sum.Confidence / float64(n)),
	}
}

// recommendation maps the overall average to a six-tier categorical verdict.
func recommendation(overall float64) string {
	switch {
	case overall >= 4.5:
		return "Outstanding candidate"
	case overall >= 4.0:
		return "Strong candidate"
	case overall >= 3.5:
		return "Good candidate"
	case overall >= 3.0:
		return "Promising with reservations"
	case overall >= 2.5:
		return "Needs improvement"
	default:
		return "Significant preparation required"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
