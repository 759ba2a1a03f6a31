package search

import (
	"strings"

	"github.com/MunifTanjim/go-ptt"
)

type releaseInfo struct {
	Resolution string
	Quality    string
	Codec      string
	HDR        []string
}

func parseRelease(name string) releaseInfo {
	info := ptt.Parse(name)
	if info == nil {
		return releaseInfo{}
	}
	return releaseInfo{
		Resolution: info.Resolution,
		Quality:    info.Quality,
		Codec:      info.Codec,
		HDR:        info.HDR,
	}
}

// Summary is the short quality line shown under the file name.
func (r releaseInfo) Summary() string {
	parts := make([]string, 0, 3+len(r.HDR))
	for _, part := range append([]string{r.Resolution, r.Quality, r.Codec}, r.HDR...) {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

func (r releaseInfo) ResolutionGroup() string {
	res := strings.ToLower(r.Resolution)
	switch {
	case strings.Contains(res, "2160") || strings.Contains(res, "4k"):
		return "4k"
	case strings.Contains(res, "1080"):
		return "1080p"
	case strings.Contains(res, "720"):
		return "720p"
	default:
		return "sd"
	}
}

func bingeGroup(r releaseInfo) string {
	return "webshare-" + r.ResolutionGroup()
}
