// Package jsonextract recovers a JSON object from model reply text that may
// arrive wrapped in markdown fences or surrounded by prose. Strategies are
// ordered and each independently testable.
package jsonextract

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/listing-pipeline/internal/model"
)

// strategy attempts to isolate a decodable JSON object from text. It returns
// the candidate substring and whether it produced one.
type strategy struct {
	name  string
	apply func(string) (string, bool)
}

// strategies are tried in order; the first candidate that decodes wins.
var strategies = []strategy{
	{"fenced_block", fencedBlock},
	{"raw_object", rawObject},
	{"balanced_substring", balancedSubstring},
}

// Object extracts and decodes a single JSON object from text into dst.
// On failure it returns a *model.ParseError naming the last strategy tried.
func Object(text string, dst any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return &model.ParseError{Strategy: "empty", Snippet: "", Err: errEmpty}
	}

	var lastErr error
	lastStrategy := "none"
	for _, s := range strategies {
		candidate, ok := s.apply(text)
		if !ok {
			continue
		}
		err := json.Unmarshal([]byte(candidate), dst)
		if err == nil {
			return nil
		}
		lastErr = err
		lastStrategy = s.name
	}

	return &model.ParseError{
		Strategy: lastStrategy,
		Snippet:  snippet(text),
		Err:      lastErr,
	}
}

var errEmpty = jsonError("empty reply")

type jsonError string

func (e jsonError) Error() string { return string(e) }

// fencedBlock strips a markdown code fence (```json ... ``` or ``` ... ```).
func fencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	rest := text[start+3:]
	// Skip an optional language tag on the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{}") {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// rawObject returns the whole text when it already looks like a bare object.
func rawObject(text string) (string, bool) {
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		return text, true
	}
	return "", false
}

// balancedSubstring finds the longest balanced {...} substring, tracking
// brace depth outside of string literals.
func balancedSubstring(text string) (string, bool) {
	best := ""
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					candidate := text[start : i+1]
					if len(candidate) > len(best) {
						best = candidate
					}
				}
			}
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

func snippet(text string) string {
	const n = 120
	if len(text) <= n {
		return text
	}
	return text[:n]
}
