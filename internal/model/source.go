package model

import "time"

// Source is the fetched content behind one cited URL
type Source struct {
	URL       string        `json:"url"`
	Title     string        `json:"title,omitempty"`
	Content   string        `json:"-"`                  // Normalized text, empty when Err is set
	Err       *FetchError   `json:"error,omitempty"`    // Fetch failure, mutually exclusive with Content
	Authority AuthorityTier `json:"authority"`          // Source authority classification
	Attempts  int           `json:"attempts,omitempty"` // Fetch attempts made (including retries)
	FetchedAt time.Time     `json:"fetched_at"`
}

// OK reports whether the source carries usable content
func (s *Source) OK() bool {
	return s != nil && s.Err == nil && s.Content != ""
}

// SourceSummary is the per-URL fetch outcome shown in a report
type SourceSummary struct {
	URL       string         `json:"url"`
	Title     string         `json:"title,omitempty"`
	OK        bool           `json:"ok"`
	Chars     int            `json:"chars"`
	Authority AuthorityTier  `json:"authority"`
	ErrorKind FetchErrorKind `json:"error_kind,omitempty"`
	Error     string         `json:"error,omitempty"`
	CitedBy   int            `json:"cited_by"` // Number of claims citing this URL
}

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Laws, statutes, academic papers, official documents
	TierSecondary AuthorityTier = 2 // Encyclopedias, major publishers, reputable media
	TierTertiary  AuthorityTier = 3 // Blogs, personal websites, everything else
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}
