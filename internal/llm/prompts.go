package llm

import (
	"fmt"
	"strings"
)

const extractionSystemPrompt = `You extract verifiable factual claims and their cited sources from research reports.

For each claim:
1. Copy the exact factual statement from the report.
2. Rewrite it as a yes/no verification question that can be answered strictly from the cited source text (a checkable proposition, never open-ended).
3. List the URLs the report cites for that statement. Only use URLs that appear in the report.

Only include factual claims that can be objectively verified and that have at least one explicit source URL.
Skip opinions, predictions, and statements without citations.

Respond with a JSON object:
{
  "claims": [
    {
      "statement": "The Eiffel Tower was completed in 1889.",
      "verification_question": "Do the sources state that the Eiffel Tower was completed in 1889?",
      "source_urls": ["https://example.org/eiffel"]
    }
  ]
}`

const judgmentSystemPrompt = `You are a meticulous fact-checker. Assess whether a claim is supported by the provided source excerpts ONLY. Do not use external knowledge.

Possible statuses:
- SUPPORTED: the claim is directly and fully supported by the text of one or more sources.
- PARTIALLY_SUPPORTED: the claim is partially supported, or supported with significant caveats or missing details.
- CONTRADICTED: the sources contain information that directly contradicts the claim.
- UNVERIFIABLE: the excerpts do not contain enough information to verify or contradict the claim.

Provide a confidence score from 0.0 to 1.0 reflecting your certainty based only on the provided text.
Explain your reasoning, citing source numbers (e.g. [1]) where possible.
If different sources present conflicting information relevant to the claim, say so and set has_contradictions to true.

Respond with a JSON object:
{
  "status": "SUPPORTED | PARTIALLY_SUPPORTED | CONTRADICTED | UNVERIFIABLE",
  "confidence": 0.0,
  "reasoning": "...",
  "has_contradictions": false
}`

// BuildJudgmentPrompt constructs the user message for one claim
func BuildJudgmentPrompt(req JudgeRequest) string {
	var b strings.Builder
	b.WriteString("Validate the following claim based only on the provided source excerpts.\n\n")
	fmt.Fprintf(&b, "CLAIM: %s\n\n", req.Statement)
	if req.Question != "" {
		fmt.Fprintf(&b, "VERIFICATION QUESTION: %s\n\n", req.Question)
	}
	b.WriteString("SOURCE EXCERPTS:\n--- START OF SOURCES ---\n")
	b.WriteString(req.Evidence)
	b.WriteString("\n--- END OF SOURCES ---\n\n")
	b.WriteString("Decide whether the claim is supported, partially supported, contradicted, or unverifiable based solely on these excerpts.")
	return b.String()
}

// BuildExtractionPrompt wraps the report text for the extraction call
func BuildExtractionPrompt(reportText string) string {
	return "Extract the verifiable claims from this report.\n\nREPORT:\n" + reportText
}
