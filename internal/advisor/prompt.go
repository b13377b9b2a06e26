package advisor

import (
	"encoding/json"
	"strings"

	"github.com/jmcabrera/pesowise/internal/compliance"
	"github.com/jmcabrera/pesowise/internal/metrics"
)

// BuildPrompt renders the advisory prompt. It expects the model to return a
// STRICT JSON object matching the Advisory shape.
func BuildPrompt(m metrics.Metrics, report compliance.Report) string {
	basePrompt :=
		"You are a personal finance advisor for users in the Philippines (amounts are in PHP).\n\n" +
			"Task:\n" +
			"- Review the financial metrics and compliance report below.\n" +
			"- Produce a short financial health assessment.\n" +
			"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
			"- Output a single JSON object.\n\n" +
			"The object must have these fields:\n" +
			"- \"healthScore\": integer 0-100 (100 is excellent financial health)\n" +
			"- \"summary\": string, 2-3 sentences in plain language\n" +
			"- \"recommendations\": array of 3-5 short actionable strings\n" +
			"- \"loanEligibility\": object with:\n" +
			"  - \"eligible\": boolean\n" +
			"  - \"maxAmount\": number (PHP, 0 when not eligible)\n" +
			"  - \"termMonths\": integer (0 when not eligible)\n" +
			"  - \"notes\": string\n\n"

	rulesPrompt :=
		"Rules:\n" +
			"- Base the assessment only on the data provided.\n" +
			"- Keep recommendations specific to the spending and income patterns shown.\n" +
			"- Be conservative with loan eligibility when compliance status is not COMPLIANT.\n\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Do NOT use ```json or any Markdown.\n" +
			"Output must begin with \"{\" and end with \"}\".\n"

	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("Financial metrics:\n")
	b.WriteString(marshalSection(m))
	b.WriteString("\n\nCompliance report:\n")
	b.WriteString(marshalSection(report))
	b.WriteString("\n\n")
	b.WriteString(rulesPrompt)
	return b.String()
}

func marshalSection(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// extractJSONObject strips Markdown fences and surrounding junk, keeping only
// the first top-level JSON object in the text. Returns "" when none is found.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return ""
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Keep only from the first '{' to the last '}'.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}
