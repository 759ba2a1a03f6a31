package domain

import (
	"strings"
	"unicode/utf8"
)

type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.Username) != "" && c.Password != ""
}

// MaskedUsername keeps the first two runes so log lines stay correlatable.
func (c Credentials) MaskedUsername() string {
	name := strings.TrimSpace(c.Username)
	if utf8.RuneCountInString(name) <= 2 {
		return "***"
	}
	runes := []rune(name)
	return string(runes[:2]) + "***"
}

// Session is a host token scoped to a single resolution request.
type Session struct {
	Token string
}

func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != ""
}
