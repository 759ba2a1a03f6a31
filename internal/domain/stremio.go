package domain

type StreamResponse struct {
	Streams []Stream `json:"streams"`
}

type Stream struct {
	URL           string         `json:"url,omitempty"`
	ExternalURL   string         `json:"externalUrl,omitempty"`
	Name          string         `json:"name,omitempty"`
	Title         string         `json:"title,omitempty"`
	BehaviorHints *BehaviorHints `json:"behaviorHints,omitempty"`
}

type BehaviorHints struct {
	NotWebReady bool   `json:"notWebReady"`
	BingeGroup  string `json:"bingeGroup,omitempty"`
	Filename    string `json:"filename,omitempty"`
	VideoSize   int64  `json:"videoSize,omitempty"`
}

type Manifest struct {
	ID            string                `json:"id"`
	Version       string                `json:"version"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Resources     []string              `json:"resources"`
	Types         []string              `json:"types"`
	Catalogs      []any                 `json:"catalogs"`
	IDPrefixes    []string              `json:"idPrefixes"`
	BehaviorHints ManifestBehaviorHints `json:"behaviorHints"`
	Config        []ManifestConfigField `json:"config,omitempty"`
}

type ManifestBehaviorHints struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired"`
}

type ManifestConfigField struct {
	Key      string   `json:"key"`
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Options  []string `json:"options,omitempty"`
	Default  string   `json:"default,omitempty"`
	Required bool     `json:"required"`
}
