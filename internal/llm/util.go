package llm

import "strings"

// CleanJSONBlock removes a markdown code fence wrapped around a model
// response. Anything else, including prose before or after the JSON, is left
// in place so that the caller's parser rejects it.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	text = strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")

	// language identifier on the opening line
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		first := strings.TrimSpace(text[:idx])
		if !strings.ContainsAny(first, " {[\"") {
			text = text[idx+1:]
		}
	}
	return strings.TrimSpace(text)
}
