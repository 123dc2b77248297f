package audit

import (
	"fmt"
	"strings"
)

// BuildInstruction produces the natural-language instruction sent to the
// agent for one target URL.
func BuildInstruction(url string) string {
	var sb strings.Builder
	sb.WriteString("Act as a strict Fact-Checker. ")
	sb.WriteString(fmt.Sprintf("Audit this article: %s. ", url))
	sb.WriteString("Cross-reference claims against external sources.")
	return sb.String()
}
