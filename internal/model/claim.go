package model

// Claim is an atomic, checkable assertion extracted from a report
type Claim struct {
	ID                   string   `json:"id"`
	Index                int      `json:"index"`                 // Position in extraction order (0-based)
	Statement            string   `json:"statement"`             // The assertion as stated in the report
	VerificationQuestion string   `json:"verification_question"` // Yes/no proposition answerable from sources
	SourceURLs           []string `json:"source_urls"`           // Cited URLs, deduplicated, never empty
}

// HasSources reports whether the claim cites at least one URL
func (c Claim) HasSources() bool {
	return len(c.SourceURLs) > 0
}
