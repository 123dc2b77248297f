package server

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"newsgrader/audit"
)

// gradeLabels maps each grade to its display label. Colors follow the
// original NewsGrader palette.
var gradeLabels = map[audit.Grade]struct {
	Label string
	Color string
}{
	audit.GradeA: {"High Accuracy", "#2ecc71"},
	audit.GradeB: {"Mostly Accurate", "#3498db"},
	audit.GradeC: {"Mixed Accuracy", "#f1c40f"},
	audit.GradeD: {"Questionable", "#e67e22"},
	audit.GradeF: {"Misleading/False", "#e74c3c"},
}

// BuildMarkdown renders a Result as a markdown report.
func BuildMarkdown(res audit.Result) string {
	label := gradeLabels[res.LetterGrade].Label

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Grade %s — %s\n\n", res.LetterGrade, label))
	sb.WriteString(fmt.Sprintf("> %s\n\n", res.Verdict))

	sb.WriteString("## Red Flags\n\n")
	if len(res.RedFlags) == 0 {
		sb.WriteString("No major issues.\n\n")
	} else {
		for _, flag := range res.RedFlags {
			sb.WriteString(fmt.Sprintf("- %s\n", flag))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Verified Facts\n\n")
	if len(res.VerifiedFacts) == 0 {
		sb.WriteString("No verifiable facts found.\n\n")
	} else {
		for _, fact := range res.VerifiedFacts {
			sb.WriteString(fmt.Sprintf("- %s\n", fact))
		}
		sb.WriteString("\n")
	}

	if len(res.SourcesUsed) > 0 {
		sb.WriteString(fmt.Sprintf("Verified against: %s\n", strings.Join(res.SourcesUsed, ", ")))
	}
	return sb.String()
}

// RenderHTML converts the markdown report to HTML.
func RenderHTML(res audit.Result) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(BuildMarkdown(res)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
