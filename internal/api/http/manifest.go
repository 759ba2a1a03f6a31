package apihttp

import (
	"html/template"
	"io"
	"strings"

	"wsaddon/internal/domain"
)

const (
	manifestID          = "community.coffei.webshare"
	manifestName        = "Webshare.cz with Real-Debrid"
	manifestDescription = "Simple webshare.cz search and streaming with Real-Debrid support."
)

// Manifest describes the addon. A manifest served under a config segment
// is already configured, so Stremio must not ask for configuration again.
func Manifest(version string, configured bool) domain.Manifest {
	return domain.Manifest{
		ID:          manifestID,
		Version:     version,
		Name:        manifestName,
		Description: manifestDescription,
		Resources:   []string{"stream"},
		Types:       []string{string(domain.MediaKindMovie), string(domain.MediaKindSeries)},
		Catalogs:    []any{},
		IDPrefixes:  []string{"tt"},
		BehaviorHints: domain.ManifestBehaviorHints{
			Configurable:          true,
			ConfigurationRequired: !configured,
		},
		Config: []domain.ManifestConfigField{
			{Key: "login", Type: "text", Title: "Webshare.cz login - username or email", Required: true},
			{Key: "password", Type: "password", Title: "Webshare.cz password", Required: true},
			{Key: "realdebrid_api", Type: "password", Title: "Real-Debrid API Key (volitelné)"},
			{
				Key:     "use_realdebrid",
				Type:    "select",
				Title:   "Použít Real-Debrid pro streamování",
				Options: []string{"ano", "ne"},
				Default: "ne",
			},
		},
	}
}

type landingData struct {
	Name        string
	Description string
	Version     string
	ManifestURL string
	InstallURL  template.URL
}

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Name}}</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
        h1 { color: #2c3e50; }
        .btn { display: inline-block; background: #3498db; color: white; padding: 10px 15px;
               text-decoration: none; border-radius: 4px; font-weight: bold; }
    </style>
</head>
<body>
    <h1>{{.Name}}</h1>
    <p>{{.Description}}</p>
    <p>Manifest URL:</p>
    <code>{{.ManifestURL}}</code><br><br>
    <a class="btn" href="{{.InstallURL}}">Install to Stremio</a>
    <p><small>v{{.Version}}</small></p>
</body>
</html>
`))

func renderLanding(w io.Writer, data landingData) error {
	return landingTemplate.Execute(w, data)
}

// stremioInstallURL swaps the http(s) scheme for stremio://, which the
// template would otherwise refuse as an unsafe href.
func stremioInstallURL(manifestURL string) template.URL {
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(manifestURL, prefix) {
			return template.URL("stremio://" + strings.TrimPrefix(manifestURL, prefix))
		}
	}
	return template.URL("#")
}
