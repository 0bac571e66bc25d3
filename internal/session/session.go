// Package session owns per-interview mutable state: the progress cursor
// through the question pipeline, the transcript, cached source context, and
// security telemetry. It mediates every other component.
package session

import (
	"errors"
	"time"

	"encoding/json"

	"github.com/jobprep/interviewd/internal/interview"
	"github.com/jobprep/interviewd/internal/skills"
)

// State is the lifecycle stage of a session.
type State string

const (
	// StateContextEstablished means source materials are parsed and immutable.
	StateContextEstablished State = "context_established"
	// StateStarted means the first question has been generated.
	StateStarted State = "started"
	// StateCompleted means every pipeline slot has an accepted answer.
	StateCompleted State = "completed"
	// StateSummarized means the summary has been computed and persisted.
	StateSummarized State = "summarized"
)

var (
	// ErrNotFound is returned when a session id is unknown to both the
	// in-memory map and the durable store.
	ErrNotFound = errors.New("session not found")
	// ErrMissingSource rejects starting an interview without usable resume
	// and job-description text; proceeding would risk fabricated questions.
	ErrMissingSource = errors.New("resume or job description text is missing")
	// ErrNotStarted rejects answers on a session whose interview has not begun.
	ErrNotStarted = errors.New("interview has not been started")
	// ErrNotCompleted rejects summarizing a session that still has open slots.
	ErrNotCompleted = errors.New("interview is not completed yet")
	// ErrBlankAnswer rejects empty answer submissions.
	ErrBlankAnswer = errors.New("answer must not be blank")
)

// SourceContext carries the interview's source materials. It is immutable
// once the session is created.
type SourceContext struct {
	ResumeText   string          `json:"resume_text"`
	JDText       string          `json:"jd_text"`
	ParsedResume json.RawMessage `json:"parsed_resume,omitempty"`
	ParsedJD     json.RawMessage `json:"parsed_jd,omitempty"`
	SkillMatch   skills.Match    `json:"skill_match"`
}

// Telemetry holds write-only security counters updated out of band. The
// pipeline never reads them; they only surface in the final summary.
type Telemetry struct {
	TabSwitches     int  `json:"tab_switches"`
	FullscreenUsed  bool `json:"fullscreen_used"`
	DurationSeconds int  `json:"duration_seconds"`
}

// Session is the unit of interview state.
type Session struct {
	ID            string                   `json:"id"`
	UserEmail     string                   `json:"user_email"`
	State         State                    `json:"state"`
	StageIndex    int                      `json:"stage_index"`
	QuestionTypes []interview.QuestionType `json:"question_types"`
	Transcript    []interview.Slot         `json:"transcript"`
	Source        SourceContext            `json:"source_context"`
	Greeting      string                   `json:"greeting,omitempty"`
	Telemetry     Telemetry                `json:"telemetry"`
	CreatedAt     time.Time                `json:"created_at"`
}

// Completed reports whether the progress cursor has passed the last slot.
func (s *Session) Completed() bool {
	return s.StageIndex >= len(s.QuestionTypes)
}

// Meta is the listing projection of a session.
type Meta struct {
	ID        string    `json:"id"`
	UserEmail string    `json:"user_email"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists sessions and their summaries. The manager holds recent
// sessions in memory and falls through to the store on a miss.
type Store interface {
	SaveSession(s *Session) error
	GetSession(id string) (*Session, bool, error)
	ListSessions(userEmail string) ([]Meta, error)
	ListSessionUsers() ([]string, error)
	PruneSessions(userEmail string, keep int) (int, error)
	SaveSummary(sessionID string, doc []byte) error
	GetSummary(sessionID string) ([]byte, bool, error)
}
