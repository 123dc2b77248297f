package audit

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Grade is the overall accuracy grade assigned by the agent.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// DefaultGrade is substituted when the agent returns an unknown letter, so
// downstream display always has a grade to color.
const DefaultGrade = GradeC

// DefaultVerdict is substituted when the agent omits the verdict sentence.
const DefaultVerdict = "No verdict provided."

func (g Grade) Valid() bool {
	switch g {
	case GradeA, GradeB, GradeC, GradeD, GradeF:
		return true
	}
	return false
}

// Result is the canonical structured audit verdict. It is created exactly
// once per successful audit and immutable thereafter. RedFlags and
// VerifiedFacts are always non-nil, possibly empty.
type Result struct {
	LetterGrade   Grade    `json:"letter_grade"`
	Verdict       string   `json:"one_sentence_verdict"`
	RedFlags      []string `json:"red_flags"`
	VerifiedFacts []string `json:"verified_facts"`
	SourcesUsed   []string `json:"sources_used,omitempty"`

	// Anomalies records fields that had to be defaulted or coerced during
	// validation. Diagnostic only; not part of the wire contract.
	Anomalies []string `json:"-"`
}

// outputSchema constrains the agent's structured output. Kept as literal JSON
// so the wire shape is visible in one place.
const outputSchema = `{
  "properties": {
    "letter_grade": {"type": "string", "enum": ["A", "B", "C", "D", "F"], "description": "Overall accuracy grade (A-F)."},
    "one_sentence_verdict": {"type": "string", "description": "Concise summary of findings."},
    "red_flags": {"type": "array", "items": {"type": "string"}, "description": "List of inaccuracies or missing context."},
    "verified_facts": {"type": "array", "items": {"type": "string"}, "description": "List of verified true claims."},
    "sources_used": {"type": "array", "items": {"type": "string"}, "description": "List of authoritative sources used."}
  },
  "required": ["letter_grade", "one_sentence_verdict", "red_flags", "verified_facts"]
}`

// OutputSchema returns the JSON schema attached to every audit initiation call.
func OutputSchema() json.RawMessage {
	return json.RawMessage(outputSchema)
}

// Validate checks a structured candidate against the verdict contract.
// Partial or malformed agent output is expected, so individual fields degrade
// gracefully: an unknown grade becomes DefaultGrade, a missing verdict becomes
// DefaultVerdict, and missing or wrong-typed arrays become empty slices. Each
// coercion is recorded on the result's Anomalies. Only a candidate that is not
// a JSON object at all fails, as a ParseError.
func Validate(candidate json.RawMessage) (Result, error) {
	parsed := gjson.ParseBytes(candidate)
	if !parsed.IsObject() {
		return Result{}, &ParseError{Raw: string(candidate), Reason: "payload is not a JSON object"}
	}

	var res Result

	grade := Grade(parsed.Get("letter_grade").String())
	if grade.Valid() {
		res.LetterGrade = grade
	} else {
		res.LetterGrade = DefaultGrade
		res.Anomalies = append(res.Anomalies, fmt.Sprintf("letter_grade %q replaced with %q", grade, DefaultGrade))
	}

	verdict := parsed.Get("one_sentence_verdict")
	if !verdict.Exists() {
		// Some agent revisions name the field verdict_summary.
		verdict = parsed.Get("verdict_summary")
	}
	if verdict.Type == gjson.String && verdict.String() != "" {
		res.Verdict = verdict.String()
	} else {
		res.Verdict = DefaultVerdict
		res.Anomalies = append(res.Anomalies, "one_sentence_verdict missing")
	}

	res.RedFlags = stringSlice(parsed.Get("red_flags"), "red_flags", &res.Anomalies)
	res.VerifiedFacts = stringSlice(parsed.Get("verified_facts"), "verified_facts", &res.Anomalies)
	res.SourcesUsed = stringSlice(parsed.Get("sources_used"), "", nil)

	return res, nil
}

// stringSlice coerces a candidate array field, yielding an empty slice rather
// than failing when the field is missing or the wrong type.
func stringSlice(value gjson.Result, field string, anomalies *[]string) []string {
	out := []string{}
	if !value.IsArray() {
		if value.Exists() && anomalies != nil {
			*anomalies = append(*anomalies, field+" was not an array")
		}
		return out
	}
	for _, item := range value.Array() {
		if s := item.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
