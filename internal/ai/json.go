package ai

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls a JSON object out of a chatty model reply. It takes the
// substring from the first '{' to the last '}' and ignores everything around
// it (explanations, markdown fences). Returns false when no object can be
// found or the substring is not valid JSON.
func ExtractJSON(text string) (json.RawMessage, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end <= start {
		return nil, false
	}
	candidate := json.RawMessage(text[start : end+1])
	if !json.Valid(candidate) {
		return nil, false
	}
	return candidate, true
}
