package evaluation

import (
	"fmt"
	"strings"

	"github.com/jobprep/interviewd/internal/interview"
)

func questionConsistencyPrompt(questions []string, resumeText, jdText string) string {
	var b strings.Builder
	b.WriteString("Evaluate the consistency of these interview questions with the provided resume and job description.\n\n")
	fmt.Fprintf(&b, "Resume: %s\n", excerpt(resumeText, sourceExcerptLimit))
	fmt.Fprintf(&b, "Job Description: %s\n\n", excerpt(jdText, sourceExcerptLimit))
	b.WriteString("Questions:\n")
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	b.WriteString(`
Rate each question on:
1. Relevance to job role (1-5)
2. Alignment with candidate's background (1-5)
3. Appropriateness for interview level (1-5)

Return JSON format:
{
  "overall_consistency_score": 4.2,
  "question_ratings": [
    {"question": "Q1", "relevance": 4, "alignment": 5, "appropriateness": 4, "comments": "Good question"}
  ],
  "consistency_issues": ["List any issues found"],
  "recommendations": ["Suggestions for improvement"]
}`)
	return b.String()
}

func hallucinationPrompt(transcript []interview.Slot, resumeText, jdText string) string {
	var b strings.Builder
	b.WriteString(`Analyze this AI-generated content for potential hallucinations or fabricated information.

When checking if a claim is supported by the source materials (resume, job description):
- Use case-insensitive and fuzzy/semantic matching.
- Consider synonyms, abbreviations, and minor variations as matches.
- Only flag as "unsupported_claim" if you are confident the claim is not present in any form.

AI Output:
`)
	b.WriteString(interview.FormatTranscript(transcript))
	b.WriteString("\n\nSource Materials:\n")
	fmt.Fprintf(&b, "Resume: %s\n", excerpt(resumeText, hallucinationExcerptLimit))
	fmt.Fprintf(&b, "Job Description: %s\n", excerpt(jdText, hallucinationExcerptLimit))
	b.WriteString(`
Check for:
1. Claims not supported by source materials
2. Specific details not mentioned in sources
3. Inconsistent information
4. Fabricated company names, dates, or facts

Return JSON:
{
  "hallucination_score": 0.2,
  "detected_issues": [
    {"type": "unsupported_claim", "text": "specific claim", "severity": "low/medium/high"}
  ],
  "confidence": 0.8,
  "recommendations": ["How to improve"]
}`)
	return b.String()
}

func feedbackQualityPrompt(feedbacks []string) string {
	var b strings.Builder
	b.WriteString("Evaluate the quality of these AI-generated feedback responses.\n\nFeedback Samples:\n")
	for i, f := range feedbacks {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f)
	}
	b.WriteString(`
Rate each feedback on:
1. Specificity (1-5): How specific and actionable is the feedback?
2. Constructiveness (1-5): Is the feedback helpful and positive?
3. Relevance (1-5): Does it address the actual answer given?
4. Clarity (1-5): Is the feedback clear and understandable?

Return JSON:
{
  "overall_quality_score": 4.1,
  "feedback_ratings": [
    {"feedback": "F1", "specificity": 4, "constructiveness": 5, "relevance": 4, "clarity": 4}
  ],
  "quality_issues": ["List any issues"],
  "improvement_suggestions": ["How to improve feedback quality"]
}`)
	return b.String()
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
