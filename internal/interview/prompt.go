package interview

import (
	"fmt"
	"strings"
)

const (
	noResumePlaceholder = "No resume information available"
	noJDPlaceholder     = "No job description information available"
)

// antiFabrication is appended to every question prompt. Restricting the
// generator to facts present in the supplied source text is the core
// correctness property of the pipeline, so the directive is unconditional.
const antiFabrication = `CRITICAL: Only ask questions about information that is EXPLICITLY mentioned in the provided resume and job description.
DO NOT fabricate, invent, or assume any projects, experiences, or details that are not clearly stated in the source materials.
If insufficient information is provided, ask general questions about the candidate's background rather than specific projects.`

// buildQuestionPrompt assembles the generation prompt for one question slot.
// Blank source texts are replaced with explicit placeholders so the
// anti-fabrication directive stays meaningful.
func buildQuestionPrompt(resumeText, jdText string, transcript []Slot, qt QuestionType) string {
	if strings.TrimSpace(resumeText) == "" {
		resumeText = noResumePlaceholder
	}
	if strings.TrimSpace(jdText) == "" {
		jdText = noJDPlaceholder
	}

	return fmt.Sprintf(`You are an AI interviewer conducting a personalized interview.

Resume:
%s

Job Description:
%s

Interview so far:
%s

Ask the candidate exactly one %s interview question. Return only the question text, with no preamble.

%s`, resumeText, jdText, FormatTranscript(transcript), qt, antiFabrication)
}

// FormatTranscript serializes prior slots as alternating Q/A lines.
func FormatTranscript(transcript []Slot) string {
	if len(transcript) == 0 {
		return "(no questions asked yet)"
	}
	var sb strings.Builder
	for _, slot := range transcript {
		fmt.Fprintf(&sb, "Q: %s\nA: %s\n", slot.Question, slot.Answer)
	}
	return strings.TrimRight(sb.String(), "\n")
}
