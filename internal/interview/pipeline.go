// Package interview holds the question pipeline, the answer scoring engine,
// and the coaching feedback generator.
package interview

// QuestionType labels one slot category in the fixed question sequence.
type QuestionType string

const (
	ResumeBased         QuestionType = "resume-based"
	JobDescriptionBased QuestionType = "job-description-based"
	FollowUp            QuestionType = "follow-up"
	Behavioral          QuestionType = "behavioral"
)

// DefaultPipeline returns the standard four-slot question sequence. The
// sequence is fixed at session creation and defines the session's length.
func DefaultPipeline() []QuestionType {
	return []QuestionType{ResumeBased, JobDescriptionBased, FollowUp, Behavioral}
}

// Slot is one position in the question sequence. Question is populated when
// the slot is generated; the remaining fields only once the answer arrives.
type Slot struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Feedback string `json:"feedback,omitempty"`
	Score    *Score `json:"score,omitempty"`
	Tone     *Tone  `json:"tone,omitempty"`
}

// Answered reports whether the slot has received an answer.
func (s Slot) Answered() bool { return s.Answer != "" }
