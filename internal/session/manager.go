package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobprep/interviewd/internal/extract"
	"github.com/jobprep/interviewd/internal/interview"
	"github.com/jobprep/interviewd/internal/skills"
)

// greetingSourceLimit bounds the resume/JD prefix used as the greeting cache
// key, so cosmetic edits deep in a document do not bust the cache.
const greetingSourceLimit = 500

// failureFeedback replaces coaching text when generation fails for a slot.
const failureFeedback = "Feedback could not be generated for this answer."

const (
	completionMessage       = "Interview complete. Request your summary for detailed feedback."
	alreadyCompletedMessage = "Interview already completed."
)

// Generator is the gateway surface the manager needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error)
}

// ArtifactCache memoizes derived artifacts by content hash.
type ArtifactCache interface {
	GetOrCompute(ctx context.Context, kind string, content []byte, compute func(context.Context) ([]byte, error)) ([]byte, error)
}

// SkillAnalyzer produces the resume/JD skill diff.
type SkillAnalyzer interface {
	Compare(ctx context.Context, resumeText, jdText string) (skills.Match, error)
}

// QuestionSource generates the next question for a slot category.
type QuestionSource interface {
	NextQuestion(ctx context.Context, resumeText, jdText string, transcript []interview.Slot, qt interview.QuestionType) (string, error)
}

// AnswerScorer rates an answer; it must always return a bounded Score.
type AnswerScorer interface {
	Score(ctx context.Context, question, answer string) interview.Score
}

// FeedbackSource generates coaching feedback for an answer.
type FeedbackSource interface {
	Feedback(ctx context.Context, question, answer string) (string, error)
}

// ToneSource analyzes answer tone, degrading to the zero value.
type ToneSource interface {
	Analyze(ctx context.Context, answer string) interview.Tone
}

// Deps wires the manager's collaborators.
type Deps struct {
	Store      Store
	Cache      ArtifactCache
	Generator  Generator
	Analyzer   SkillAnalyzer
	Questioner QuestionSource
	Scorer     AnswerScorer
	Feedback   FeedbackSource
	Tone       ToneSource
}

// managedSession pairs a session with its per-session lock. Answer
// submissions for one session serialize on it, so out-of-order concurrent
// submissions cannot corrupt the transcript.
type managedSession struct {
	mu sync.Mutex
	s  *Session
}

// Manager is the session state machine. Sessions live in an in-memory map
// with fall-through to the durable store on a miss.
type Manager struct {
	deps   Deps
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*managedSession
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps,
		logger:   slog.Default(),
		sessions: make(map[string]*managedSession),
	}
}

// EstablishContext creates a session from uploaded resume and job-description
// files: extracts text, runs the skill diff, and memoizes parsed structures
// through the artifact cache. The resulting source context is immutable.
func (m *Manager) EstablishContext(ctx context.Context, userEmail string, resumeBytes, jdBytes []byte) (*Session, error) {
	resumeText, err := extract.Text(resumeBytes)
	if err != nil {
		return nil, fmt.Errorf("extracting resume text: %w", err)
	}
	jdText, err := extract.Text(jdBytes)
	if err != nil {
		return nil, fmt.Errorf("extracting job description text: %w", err)
	}

	match, err := m.deps.Analyzer.Compare(ctx, resumeText, jdText)
	if err != nil {
		// A degraded skill diff still leaves the interview viable: questions
		// are grounded in the raw text, not the diff.
		m.logger.Warn("skill comparison degraded", "error", err)
	}

	src := SourceContext{
		ResumeText: resumeText,
		JDText:     jdText,
		SkillMatch: match,
	}
	src.ParsedResume = m.parseDocument(ctx, "parsed_resume", resumeText, parseResumePrompt(resumeText))
	src.ParsedJD = m.parseDocument(ctx, "parsed_jd", jdText, parseJDPrompt(jdText))

	return m.createSession(userEmail, src)
}

// Clone creates a fresh session reusing a prior session's source context,
// bypassing re-extraction and re-parsing.
func (m *Manager) Clone(ctx context.Context, id string) (*Session, error) {
	ms, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	ms.mu.Lock()
	userEmail := ms.s.UserEmail
	src := ms.s.Source
	ms.mu.Unlock()

	return m.createSession(userEmail, src)
}

func (m *Manager) createSession(userEmail string, src SourceContext) (*Session, error) {
	s := &Session{
		ID:            uuid.New().String(),
		UserEmail:     userEmail,
		State:         StateContextEstablished,
		QuestionTypes: interview.DefaultPipeline(),
		Source:        src,
		CreatedAt:     time.Now().UTC(),
	}

	if err := m.deps.Store.SaveSession(s); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	m.mu.Lock()
	m.sessions[s.ID] = &managedSession{s: s}
	m.mu.Unlock()
	return s, nil
}

// StartResult is the response to a start call.
type StartResult struct {
	Greeting string `json:"greeting"`
	Question string `json:"question"`
}

// Start generates the greeting and the first question. It is idempotent:
// starting an already-started session returns the existing first question
// without regenerating anything.
func (m *Manager) Start(ctx context.Context, id string) (StartResult, error) {
	ms, err := m.lookup(id)
	if err != nil {
		return StartResult{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	s := ms.s

	if s.State != StateContextEstablished && len(s.Transcript) > 0 {
		return StartResult{Greeting: s.Greeting, Question: s.Transcript[0].Question}, nil
	}

	if strings.TrimSpace(s.Source.ResumeText) == "" || strings.TrimSpace(s.Source.JDText) == "" {
		return StartResult{}, ErrMissingSource
	}

	greeting, err := m.greeting(ctx, s)
	if err != nil {
		m.logger.Warn("greeting generation degraded", "session_id", s.ID, "error", err)
		greeting = "Welcome to your personalized interview session. Let's begin."
	}

	question, err := m.deps.Questioner.NextQuestion(ctx, s.Source.ResumeText, s.Source.JDText, nil, s.QuestionTypes[0])
	if err != nil {
		return StartResult{}, fmt.Errorf("generating first question: %w", err)
	}

	s.Greeting = greeting
	s.Transcript = append(s.Transcript, interview.Slot{Question: question})
	s.State = StateStarted
	if err := m.deps.Store.SaveSession(s); err != nil {
		return StartResult{}, fmt.Errorf("persisting session: %w", err)
	}
	return StartResult{Greeting: greeting, Question: question}, nil
}

// AnswerResult is the response to an answer submission. When Completed is
// set, Question is empty and Message carries the completion signal.
type AnswerResult struct {
	Question  string          `json:"question,omitempty"`
	Feedback  string          `json:"feedback,omitempty"`
	Score     interview.Score `json:"score"`
	Tone      *interview.Tone `json:"tone,omitempty"`
	Completed bool            `json:"completed"`
	Message   string          `json:"message,omitempty"`
}

// SubmitAnswer records the answer into the current slot, scores it, attaches
// feedback and tone, and either advances to the next question or signals
// completion. Submissions for one session serialize on its lock.
func (m *Manager) SubmitAnswer(ctx context.Context, id, answer string) (AnswerResult, error) {
	ms, err := m.lookup(id)
	if err != nil {
		return AnswerResult{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	s := ms.s

	if s.State == StateContextEstablished {
		return AnswerResult{}, ErrNotStarted
	}
	if s.Completed() {
		return AnswerResult{Completed: true, Message: alreadyCompletedMessage}, nil
	}
	if strings.TrimSpace(answer) == "" {
		return AnswerResult{}, ErrBlankAnswer
	}

	slot := &s.Transcript[s.StageIndex]
	// A retried submission after a failed next-question generation skips
	// re-scoring the already-recorded answer.
	if !slot.Answered() {
		slot.Answer = answer
		score := m.deps.Scorer.Score(ctx, slot.Question, answer)
		slot.Score = &score

		feedback, err := m.deps.Feedback.Feedback(ctx, slot.Question, answer)
		if err != nil {
			m.logger.Warn("feedback generation degraded", "session_id", s.ID, "slot", s.StageIndex, "error", err)
			feedback = failureFeedback
		}
		slot.Feedback = feedback

		if tone := m.deps.Tone.Analyze(ctx, answer); tone != (interview.Tone{}) {
			slot.Tone = &tone
		}
	}

	result := AnswerResult{
		Feedback: slot.Feedback,
		Score:    *slot.Score,
		Tone:     slot.Tone,
	}

	if next := s.StageIndex + 1; next < len(s.QuestionTypes) {
		question, err := m.deps.Questioner.NextQuestion(ctx, s.Source.ResumeText, s.Source.JDText, s.Transcript, s.QuestionTypes[next])
		if err != nil {
			// The answer stays recorded; the cursor does not advance until a
			// next question exists for the new slot.
			if saveErr := m.deps.Store.SaveSession(s); saveErr != nil {
				m.logger.Warn("persisting session after failed question generation", "session_id", s.ID, "error", saveErr)
			}
			return AnswerResult{}, fmt.Errorf("generating next question: %w", err)
		}
		s.StageIndex = next
		s.Transcript = append(s.Transcript, interview.Slot{Question: question})
		result.Question = question
	} else {
		s.StageIndex = len(s.QuestionTypes)
		s.State = StateCompleted
		result.Completed = true
		result.Message = completionMessage
	}

	if err := m.deps.Store.SaveSession(s); err != nil {
		return AnswerResult{}, fmt.Errorf("persisting session: %w", err)
	}
	return result, nil
}

// TelemetryUpdate is an out-of-band security telemetry delta.
type TelemetryUpdate struct {
	TabSwitches     int  `json:"tab_switches"`
	FullscreenUsed  bool `json:"fullscreen_used"`
	DurationSeconds int  `json:"duration_seconds"`
}

// RecordTelemetry accumulates security counters. The pipeline never reads
// them; they only surface in the summary.
func (m *Manager) RecordTelemetry(id string, update TelemetryUpdate) error {
	ms, err := m.lookup(id)
	if err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	s := ms.s

	s.Telemetry.TabSwitches += update.TabSwitches
	if update.FullscreenUsed {
		s.Telemetry.FullscreenUsed = true
	}
	if update.DurationSeconds > 0 {
		s.Telemetry.DurationSeconds = update.DurationSeconds
	}
	return m.deps.Store.SaveSession(s)
}

// Get returns the session by id, falling through to the durable store.
func (m *Manager) Get(id string) (*Session, error) {
	ms, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.s, nil
}

// List returns session metadata for a user, newest first.
func (m *Manager) List(userEmail string) ([]Meta, error) {
	return m.deps.Store.ListSessions(userEmail)
}

// Prune deletes a user's oldest sessions beyond the retention count and
// evicts them from the in-memory map.
func (m *Manager) Prune(userEmail string, keep int) (int, error) {
	metas, err := m.deps.Store.ListSessions(userEmail)
	if err != nil {
		return 0, err
	}

	deleted, err := m.deps.Store.PruneSessions(userEmail, keep)
	if err != nil {
		return 0, err
	}

	if deleted > 0 && len(metas) > keep {
		m.mu.Lock()
		for _, meta := range metas[keep:] {
			delete(m.sessions, meta.ID)
		}
		m.mu.Unlock()
	}
	return deleted, nil
}

// lookup resolves a session id against the in-memory map first, then the
// durable store, before declaring the session unknown.
func (m *Manager) lookup(id string) (*managedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ms, ok := m.sessions[id]; ok {
		return ms, nil
	}

	s, ok, err := m.deps.Store.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	ms := &managedSession{s: s}
	m.sessions[id] = ms
	return ms, nil
}

// greeting memoizes the one-time personalized greeting by a hash of the
// resume/JD prefix.
func (m *Manager) greeting(ctx context.Context, s *Session) (string, error) {
	key := []byte(prefix(s.Source.ResumeText, greetingSourceLimit) + "\x00" + prefix(s.Source.JDText, greetingSourceLimit))
	payload, err := m.deps.Cache.GetOrCompute(ctx, "greeting", key, func(ctx context.Context) ([]byte, error) {
		out, err := m.deps.Generator.Generate(ctx, greetingPrompt(s.Source))
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// parseDocument memoizes a structured parse of the document text; a failed
// parse degrades to nil rather than blocking session creation.
func (m *Manager) parseDocument(ctx context.Context, kind, text, prompt string) json.RawMessage {
	payload, err := m.deps.Cache.GetOrCompute(ctx, kind, []byte(text), func(ctx context.Context) ([]byte, error) {
		raw, err := m.deps.Generator.GenerateJSON(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		m.logger.Warn("document parsing degraded", "kind", kind, "error", err)
		return nil
	}
	return json.RawMessage(payload)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
