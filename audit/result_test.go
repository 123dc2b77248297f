package audit_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"newsgrader/audit"
)

func TestValidateCompletePayload(t *testing.T) {
	res, err := audit.Validate(json.RawMessage(`{
		"letter_grade": "A",
		"one_sentence_verdict": "Fully accurate",
		"red_flags": [],
		"verified_facts": ["x"],
		"sources_used": ["example.org"]
	}`))
	require.NoError(t, err)

	require.Equal(t, audit.GradeA, res.LetterGrade)
	require.Equal(t, "Fully accurate", res.Verdict)
	require.Equal(t, []string{}, res.RedFlags)
	require.Equal(t, []string{"x"}, res.VerifiedFacts)
	require.Equal(t, []string{"example.org"}, res.SourcesUsed)
	require.Empty(t, res.Anomalies)
}

func TestValidateCoercions(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		check   func(t *testing.T, res audit.Result)
	}{
		{
			name:    "missing_red_flags_coerces_to_empty",
			payload: `{"letter_grade":"B","one_sentence_verdict":"ok","verified_facts":["x"]}`,
			check: func(t *testing.T, res audit.Result) {
				require.NotNil(t, res.RedFlags)
				require.Empty(t, res.RedFlags)
			},
		},
		{
			name:    "unknown_grade_defaults_with_anomaly",
			payload: `{"letter_grade":"Z","one_sentence_verdict":"ok","red_flags":[],"verified_facts":[]}`,
			check: func(t *testing.T, res audit.Result) {
				require.Equal(t, audit.DefaultGrade, res.LetterGrade)
				require.NotEmpty(t, res.Anomalies)
			},
		},
		{
			name:    "missing_verdict_gets_placeholder",
			payload: `{"letter_grade":"C","red_flags":[],"verified_facts":[]}`,
			check: func(t *testing.T, res audit.Result) {
				require.Equal(t, audit.DefaultVerdict, res.Verdict)
			},
		},
		{
			name:    "legacy_verdict_summary_key_accepted",
			payload: `{"letter_grade":"B","verdict_summary":"summary form","red_flags":[],"verified_facts":[]}`,
			check: func(t *testing.T, res audit.Result) {
				require.Equal(t, "summary form", res.Verdict)
			},
		},
		{
			name:    "wrong_typed_array_coerces_to_empty",
			payload: `{"letter_grade":"D","one_sentence_verdict":"ok","red_flags":"not an array","verified_facts":[]}`,
			check: func(t *testing.T, res audit.Result) {
				require.Empty(t, res.RedFlags)
				require.NotEmpty(t, res.Anomalies)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := audit.Validate(json.RawMessage(tc.payload))
			require.NoError(t, err)
			tc.check(t, res)
		})
	}
}

func TestValidateRejectsNonObject(t *testing.T) {
	_, err := audit.Validate(json.RawMessage(`[1,2,3]`))

	var parseErr *audit.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "[1,2,3]", parseErr.Raw)
}

func TestOutputSchemaIsValidJSON(t *testing.T) {
	var schema map[string]any
	require.NoError(t, json.Unmarshal(audit.OutputSchema(), &schema))
	require.Contains(t, schema, "properties")
	require.Contains(t, schema, "required")
}
