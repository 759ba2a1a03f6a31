package domain

import "strings"

// AddonConfig is the per-user configuration Stremio embeds in every addon URL.
type AddonConfig struct {
	Login         string `json:"login"`
	Password      string `json:"password"`
	RealDebridKey string `json:"realdebrid_api,omitempty"`
	UseRealDebrid string `json:"use_realdebrid,omitempty"`
}

func (c AddonConfig) Credentials() Credentials {
	return Credentials{Username: strings.TrimSpace(c.Login), Password: c.Password}
}

func (c AddonConfig) DebridEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(c.UseRealDebrid)) {
	case "ano", "yes", "true", "1", "on":
		return true
	default:
		return false
	}
}

func (c AddonConfig) PremiumKey() string {
	return strings.TrimSpace(c.RealDebridKey)
}
