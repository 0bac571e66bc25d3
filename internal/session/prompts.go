package session

import "fmt"

func greetingPrompt(src SourceContext) string {
	return fmt.Sprintf(`You are a friendly AI interviewer about to conduct a mock interview.

Write a short, warm greeting (2-3 sentences) personalized to the candidate
and the role below. Mention one concrete detail from the resume and the role
being interviewed for. Do not ask a question yet.

Resume (excerpt):
%s

Job Description (excerpt):
%s`, prefix(src.ResumeText, greetingSourceLimit), prefix(src.JDText, greetingSourceLimit))
}

func parseResumePrompt(resumeText string) string {
	return fmt.Sprintf(`Parse the following resume into a structured JSON object:
{
    "name": "candidate name or empty string",
    "summary": "1-2 sentence professional summary",
    "skills": ["skill", ...],
    "experience": [{"title": "...", "company": "...", "highlights": ["..."]}],
    "education": [{"degree": "...", "institution": "..."}]
}

Only include information explicitly present in the resume text. Use empty
strings and empty arrays for anything absent.

Resume:
%s`, resumeText)
}

func parseJDPrompt(jdText string) string {
	return fmt.Sprintf(`Parse the following job description into a structured JSON object:
{
    "title": "role title",
    "summary": "1-2 sentence role summary",
    "required_skills": ["skill", ...],
    "nice_to_have": ["skill", ...],
    "responsibilities": ["...", ...]
}

Only include information explicitly present in the job description text. Use
empty strings and empty arrays for anything absent.

Job Description:
%s`, jdText)
}
