package gateway

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?m)^```json|^```|```$")

// ExtractJSON pulls the first JSON object out of free-form oracle output.
// The oracle may wrap JSON in commentary or markdown code fences; fences are
// stripped first, then the substring between the first '{' and the last '}'
// is parsed.
func ExtractJSON(text string) (json.RawMessage, error) {
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(strings.TrimSpace(text), ""))

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, errors.New("no JSON object found in response")
	}

	candidate := cleaned[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, errors.New("extracted text is not valid JSON")
	}
	return json.RawMessage(candidate), nil
}
