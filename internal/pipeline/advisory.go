package pipeline

import "wsaddon/internal/domain"

// Advisory streams carry no playable URL, only a link to the service the
// user has to fix something at.

func missingCredentialsAdvisory() domain.Stream {
	return domain.Stream{
		Name:        advisoryName,
		Title:       "⚠️ Missing Webshare login or password.\nOpen the addon configuration and fill them in.",
		ExternalURL: webshareLoginURL,
	}
}

func badCredentialsAdvisory() domain.Stream {
	return domain.Stream{
		Name:        advisoryName,
		Title:       "⚠️ Webshare rejected the login or password.\nCheck the credentials in the addon configuration.",
		ExternalURL: webshareLoginURL,
	}
}

func authUnavailableAdvisory() domain.Stream {
	return domain.Stream{
		Name:        advisoryName,
		Title:       "⚠️ Webshare login is unavailable right now.\nTry again in a moment.",
		ExternalURL: webshareHomeURL,
	}
}

func invalidPremiumKeyAdvisory() domain.Stream {
	return domain.Stream{
		Name:        premiumAdvisory,
		Title:       "⚠️ Real-Debrid API key is missing or invalid.\nPlain Webshare streams are listed below.",
		ExternalURL: premiumTokenURL,
	}
}

func premiumFailedAdvisory() domain.Stream {
	return domain.Stream{
		Name:        premiumAdvisory,
		Title:       "⚠️ Real-Debrid could not unrestrict any stream.\nPlain Webshare streams are listed below.",
		ExternalURL: premiumStatusURL,
	}
}
