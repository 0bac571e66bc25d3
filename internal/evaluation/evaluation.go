// Package evaluation audits a finished interview session: question grounding,
// hallucination detection, scoring consistency, and feedback quality. Each
// check fails in isolation; a broken check zeroes its component without
// blocking the others.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jobprep/interviewd/internal/interview"
)

const (
	// sourceExcerptLimit bounds resume/JD text embedded in check prompts.
	sourceExcerptLimit = 1000
	// hallucinationExcerptLimit is tighter because the transcript itself
	// already consumes most of the prompt.
	hallucinationExcerptLimit = 800
	// maxFeedbackSamples caps how many feedback texts the quality check reads.
	maxFeedbackSamples = 5
	// stdevFlagThreshold marks a rubric dimension as inconsistently scored.
	stdevFlagThreshold = 1.5
)

// JSONGenerator is the gateway surface the harness needs.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error)
}

// AnswerScorer re-scores transcript answers for the consistency check.
type AnswerScorer interface {
	Score(ctx context.Context, question, answer string) interview.Score
}

// Input is the session material under audit.
type Input struct {
	SessionID  string
	ResumeText string
	JDText     string
	Transcript []interview.Slot
}

// ComponentScores holds the four audit dimensions. All but the hallucination
// score use a 0-5 scale; the hallucination score is a 0-1 fraction where
// lower means fewer fabrications.
type ComponentScores struct {
	QuestionConsistency float64 `json:"question_consistency"`
	HallucinationScore  float64 `json:"hallucination_score"`
	ScoringConsistency  float64 `json:"scoring_consistency"`
	FeedbackQuality     float64 `json:"feedback_quality"`
}

// Report is the persisted audit result.
type Report struct {
	SessionID       string          `json:"session_id"`
	EvaluatedAt     time.Time       `json:"evaluated_at"`
	OverallScore    float64         `json:"overall_score"`
	ComponentScores ComponentScores `json:"component_scores"`
	IssuesFound     []string        `json:"issues_found"`
	Recommendations []string        `json:"recommendations"`
}

// Harness runs the four audit checks.
type Harness struct {
	generator JSONGenerator
	scorer    AnswerScorer
}

func NewHarness(generator JSONGenerator, scorer AnswerScorer) *Harness {
	return &Harness{generator: generator, scorer: scorer}
}

// checkResult is the uniform outcome of one audit check.
type checkResult struct {
	score           float64
	issues          []string
	recommendations []string
}

// Evaluate runs all four checks concurrently and aggregates their scores,
// issues, and recommendations. The overall score is the mean of the four
// components; a failed or inapplicable check contributes zero.
func (h *Harness) Evaluate(ctx context.Context, in Input) Report {
	var questions, answers, feedbacks []string
	var pairs []qaPair
	for _, slot := range in.Transcript {
		if slot.Question != "" {
			questions = append(questions, slot.Question)
		}
		if slot.Question != "" && slot.Answered() {
			pairs = append(pairs, qaPair{question: slot.Question, answer: slot.Answer})
			answers = append(answers, slot.Answer)
		}
		if slot.Feedback != "" {
			feedbacks = append(feedbacks, slot.Feedback)
		}
	}

	hasSources := strings.TrimSpace(in.ResumeText) != "" && strings.TrimSpace(in.JDText) != ""

	var consistency, hallucination, scoring, feedback checkResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		switch {
		case !hasSources:
			consistency = skipped("Cannot evaluate question consistency: missing resume or job description text")
		case len(questions) == 0:
			consistency = skipped("Cannot evaluate question consistency: no questions found in transcript")
		default:
			consistency = h.checkQuestionConsistency(gctx, questions, in.ResumeText, in.JDText)
		}
		return nil
	})
	g.Go(func() error {
		if !hasSources {
			hallucination = skipped("Cannot detect hallucinations: missing resume or job description text")
		} else {
			hallucination = h.checkHallucinations(gctx, in.Transcript, in.ResumeText, in.JDText)
		}
		return nil
	})
	g.Go(func() error {
		if len(pairs) == 0 {
			scoring = skipped("Cannot evaluate scoring consistency: no answered questions found")
		} else {
			scoring = h.checkScoringConsistency(gctx, pairs)
		}
		return nil
	})
	g.Go(func() error {
		if len(feedbacks) == 0 {
			feedback = skipped("Cannot evaluate feedback quality: no feedback found in transcript")
		} else {
			feedback = h.checkFeedbackQuality(gctx, feedbacks)
		}
		return nil
	})
	g.Wait()

	report := Report{
		SessionID:   in.SessionID,
		EvaluatedAt: time.Now().UTC(),
		ComponentScores: ComponentScores{
			QuestionConsistency: consistency.score,
			HallucinationScore:  hallucination.score,
			ScoringConsistency:  scoring.score,
			FeedbackQuality:     feedback.score,
		},
		IssuesFound:     []string{},
		Recommendations: []string{},
	}
	for _, r := range []checkResult{consistency, hallucination, scoring, feedback} {
		report.IssuesFound = append(report.IssuesFound, r.issues...)
		report.Recommendations = append(report.Recommendations, r.recommendations...)
	}
	report.OverallScore = (consistency.score + hallucination.score + scoring.score + feedback.score) / 4
	return report
}

func skipped(issue string) checkResult {
	return checkResult{issues: []string{issue}}
}

func failed(check string, err error) checkResult {
	return checkResult{issues: []string{fmt.Sprintf("%s check failed: %v", check, err)}}
}

type qaPair struct {
	question string
	answer   string
}

func (h *Harness) checkQuestionConsistency(ctx context.Context, questions []string, resumeText, jdText string) checkResult {
	raw, err := h.generator.GenerateJSON(ctx, questionConsistencyPrompt(questions, resumeText, jdText))
	if err != nil {
		return failed("question consistency", err)
	}

	var parsed struct {
		OverallConsistencyScore float64  `json:"overall_consistency_score"`
		ConsistencyIssues       []string `json:"consistency_issues"`
		Recommendations         []string `json:"recommendations"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return failed("question consistency", err)
	}
	return checkResult{
		score:           clampScore(parsed.OverallConsistencyScore, 5),
		issues:          parsed.ConsistencyIssues,
		recommendations: parsed.Recommendations,
	}
}

func (h *Harness) checkHallucinations(ctx context.Context, transcript []interview.Slot, resumeText, jdText string) checkResult {
	raw, err := h.generator.GenerateJSON(ctx, hallucinationPrompt(transcript, resumeText, jdText))
	if err != nil {
		return failed("hallucination detection", err)
	}

	var parsed struct {
		HallucinationScore float64 `json:"hallucination_score"`
		DetectedIssues     []struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			Severity string `json:"severity"`
		} `json:"detected_issues"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return failed("hallucination detection", err)
	}

	result := checkResult{
		score:           clampScore(parsed.HallucinationScore, 1),
		recommendations: parsed.Recommendations,
	}
	for _, issue := range parsed.DetectedIssues {
		result.issues = append(result.issues, fmt.Sprintf("Hallucination (%s, %s): %s", issue.Type, issue.Severity, issue.Text))
	}
	return result
}

// checkScoringConsistency is a local statistical check: it re-scores every
// answered question and flags rubric dimensions whose sample deviation
// exceeds the threshold. No generation round-trip is involved beyond the
// scorer itself.
func (h *Harness) checkScoringConsistency(ctx context.Context, pairs []qaPair) checkResult {
	dims := map[string][]float64{
		"clarity":         nil,
		"relevance":       nil,
		"technical_depth": nil,
		"confidence":      nil,
	}
	for _, pair := range pairs {
		score := h.scorer.Score(ctx, pair.question, pair.answer)
		dims["clarity"] = append(dims["clarity"], float64(score.Clarity))
		dims["relevance"] = append(dims["relevance"], float64(score.Relevance))
		dims["technical_depth"] = append(dims["technical_depth"], float64(score.TechnicalDepth))
		dims["confidence"] = append(dims["confidence"], float64(score.Confidence))
	}

	var result checkResult
	for _, name := range []string{"clarity", "relevance", "technical_depth", "confidence"} {
		if sd := stdev(dims[name]); sd > stdevFlagThreshold {
			result.issues = append(result.issues, fmt.Sprintf("High variance in %s scoring: %.2f", name, sd))
		}
	}
	result.score = float64(5 - min(len(result.issues), 5))
	return result
}

func (h *Harness) checkFeedbackQuality(ctx context.Context, feedbacks []string) checkResult {
	if len(feedbacks) > maxFeedbackSamples {
		feedbacks = feedbacks[:maxFeedbackSamples]
	}
	raw, err := h.generator.GenerateJSON(ctx, feedbackQualityPrompt(feedbacks))
	if err != nil {
		return failed("feedback quality", err)
	}

	var parsed struct {
		OverallQualityScore    float64  `json:"overall_quality_score"`
		QualityIssues          []string `json:"quality_issues"`
		ImprovementSuggestions []string `json:"improvement_suggestions"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return failed("feedback quality", err)
	}
	return checkResult{
		score:           clampScore(parsed.OverallQualityScore, 5),
		issues:          parsed.QualityIssues,
		recommendations: parsed.ImprovementSuggestions,
	}
}

func clampScore(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
