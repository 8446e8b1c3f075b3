package llm

import "strings"

const fence = "```"

// Sanitize strips a surrounding markdown code fence (with an optional "json"
// tag) and any prose around the outermost JSON object. Blank input is
// returned as is. The result is not guaranteed to be valid JSON.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	s := strings.TrimSpace(text)

	for strings.HasPrefix(s, fence) {
		s = strings.TrimPrefix(s, fence)
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
		s = strings.TrimSpace(s)
		s = strings.TrimSpace(strings.TrimSuffix(s, fence))
	}

	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first >= 0 && last > first {
		s = s[first : last+1]
	}
	return strings.TrimSpace(s)
}
