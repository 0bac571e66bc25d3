// Package skills compares a resume against a job description, producing
// matched and missing skill sets plus a short summary.
package skills

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrEmptyResume and ErrEmptyJD reject blank inputs before any oracle call.
var (
	ErrEmptyResume = errors.New("resume text is empty")
	ErrEmptyJD     = errors.New("job description text is empty")
)

const maxComparedChars = 2000

// JSONGenerator produces a JSON object from a prompt via the generation gateway.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error)
}

// Match is the skill comparison result. MatchedSkills and MissingSkills are
// never nil, even on failure.
type Match struct {
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
	Summary       string   `json:"summary"`
}

// Analyzer delegates semantic skill comparison to the generation gateway.
type Analyzer struct {
	gen    JSONGenerator
	logger *slog.Logger
}

func NewAnalyzer(gen JSONGenerator) *Analyzer {
	return &Analyzer{gen: gen, logger: slog.Default()}
}

// Compare extracts and diffs skills between the resume and job description.
// Blank inputs are rejected locally. On malformed oracle output the returned
// Match carries empty lists and a diagnostic summary alongside the error, so
// callers always receive well-typed lists.
func (a *Analyzer) Compare(ctx context.Context, resumeText, jdText string) (Match, error) {
	if strings.TrimSpace(resumeText) == "" {
		return emptyMatch("Skills analysis failed: resume text is empty or could not be extracted."), ErrEmptyResume
	}
	if strings.TrimSpace(jdText) == "" {
		return emptyMatch("Skills analysis failed: job description text is empty or could not be extracted."), ErrEmptyJD
	}

	raw, err := a.gen.GenerateJSON(ctx, comparePrompt(resumeText, jdText))
	if err != nil {
		a.logger.Warn("skill comparison failed", "error", err)
		return emptyMatch("Skills analysis failed: the analyzer did not return a valid result."),
			fmt.Errorf("skill comparison: %w", err)
	}

	var m Match
	if err := json.Unmarshal(raw, &m); err != nil {
		a.logger.Warn("skill comparison returned unexpected shape", "error", err)
		return emptyMatch("Skills analysis failed: the analyzer returned an unexpected result shape."),
			fmt.Errorf("decoding skill comparison: %w", err)
	}

	m.MatchedSkills = cleanSkills(m.MatchedSkills)
	m.MissingSkills = cleanSkills(m.MissingSkills)
	if m.Summary == "" {
		m.Summary = "Skills analysis completed."
	}
	return m, nil
}

func emptyMatch(summary string) Match {
	return Match{
		MatchedSkills: []string{},
		MissingSkills: []string{},
		Summary:       summary,
	}
}

// cleanSkills trims entries, drops blanks, and guarantees a non-nil slice.
func cleanSkills(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func comparePrompt(resumeText, jdText string) string {
	return fmt.Sprintf(`Compare the following resume and job description. Extract and analyze skills from both documents.

Return a JSON object with the following structure:
{
    "matched_skills": ["skill1", "skill2", "skill3"],
    "missing_skills": ["skill4", "skill5"],
    "summary": "2-3 line summary of how well this resume matches the JD"
}

CRITICAL RULES:
- Extract specific technical skills, programming languages, tools, frameworks, and soft skills
- matched_skills: skills that appear in BOTH resume AND job description (be generous with matches)
- missing_skills: skills that are REQUIRED in the job description BUT are NOT mentioned in the resume
- DO NOT include skills from the resume in missing_skills - only include JD requirements that are absent from the resume
- If a skill appears in the resume but not in the JD, it must NOT be in missing_skills

SKILL MATCHING GUIDELINES:
- Be flexible with skill variations and synonyms (e.g. "Python" matches "Python programming", "AWS" matches "Amazon Web Services")
- Consider related technologies as matches and be inclusive rather than exclusive

Resume:
%s

Job Description:
%s`, truncate(resumeText, maxComparedChars), truncate(jdText, maxComparedChars))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
