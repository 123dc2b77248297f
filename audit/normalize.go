package audit

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"newsgrader/agent"
)

// ParseError reports that a terminal payload could not be turned into a
// Result. Raw retains the original text: it is the only evidence for
// debugging a malformed agent response and must reach the diagnostic view.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("audit: unparseable agent response: %s", e.Reason)
}

// The agent frequently wraps its JSON answer in a markdown code fence.
var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Normalize turns a consumer's raw terminal output into the canonical Result.
// It accepts a directly-received structured object, accumulated text possibly
// wrapped in a code fence, or the legacy {"output": "..."} envelope, and is
// idempotent: normalizing an already-normalized result is a no-op.
func Normalize(raw agent.RawResult) (Result, error) {
	if len(raw.Object) > 0 {
		if legacy, ok := legacyOutput(raw.Object); ok {
			return normalizeText(legacy, string(raw.Object))
		}
		return Validate(raw.Object)
	}
	return normalizeText(raw.Text, raw.Text)
}

func normalizeText(text, original string) (Result, error) {
	body := strings.TrimSpace(text)
	if m := fencedJSONPattern.FindStringSubmatch(body); m != nil {
		body = m[1]
	}
	if body == "" {
		return Result{}, &ParseError{Raw: original, Reason: "empty response"}
	}
	if !gjson.Valid(body) {
		return Result{}, &ParseError{Raw: original, Reason: "invalid JSON"}
	}
	if legacy, ok := legacyOutput(json.RawMessage(body)); ok {
		return normalizeText(legacy, original)
	}
	return Validate(json.RawMessage(body))
}

// legacyOutput detects the older API envelope that wraps the whole answer in
// a single "output" string.
func legacyOutput(obj json.RawMessage) (string, bool) {
	parsed := gjson.ParseBytes(obj)
	if !parsed.IsObject() {
		return "", false
	}
	output := parsed.Get("output")
	if output.Type == gjson.String && !parsed.Get("letter_grade").Exists() {
		return output.String(), true
	}
	return "", false
}
