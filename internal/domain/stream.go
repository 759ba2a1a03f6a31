package domain

type SearchCandidate struct {
	ID                  string  `json:"id"`
	DisplayName         string  `json:"displayName"`
	SizeBytes           int64   `json:"sizeBytes"`
	PositiveVotes       int     `json:"positiveVotes"`
	NegativeVotes       int     `json:"negativeVotes"`
	IsPasswordProtected bool    `json:"isPasswordProtected"`
	MatchScore          float64 `json:"matchScore"`
}

// RankedStream is one of the top candidates after sorting, before URL resolution.
type RankedStream struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Label       string `json:"label"`
	SizeBytes   int64  `json:"sizeBytes,omitempty"`
	Quality     string `json:"quality,omitempty"`
	BingeGroup  string `json:"bingeGroup,omitempty"`
}

type ResolvedStream struct {
	RankedStream
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
	Premium     bool   `json:"premium,omitempty"`
}

type PremiumLink struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
	Filename    string `json:"filename,omitempty"`
	SizeBytes   int64  `json:"sizeBytes,omitempty"`
}
