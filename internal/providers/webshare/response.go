package webshare

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"wsaddon/internal/domain"
)

var errMissingField = fmt.Errorf("%w: required field missing", domain.ErrProtocol)

type responseHeader struct {
	Status  string `xml:"status"`
	Code    string `xml:"code"`
	Message string `xml:"message"`
}

func (h responseHeader) check(operation string) error {
	status := strings.TrimSpace(h.Status)
	if status == "" {
		return fmt.Errorf("%w: <status> in %s response", errMissingField, operation)
	}
	if status != "OK" {
		return &APIError{
			Operation: operation,
			Status:    status,
			Code:      strings.TrimSpace(h.Code),
			Message:   strings.TrimSpace(h.Message),
		}
	}
	return nil
}

type saltResponse struct {
	XMLName xml.Name `xml:"response"`
	responseHeader
	Salt string `xml:"salt"`
}

type loginResponse struct {
	XMLName xml.Name `xml:"response"`
	responseHeader
	Token string `xml:"token"`
}

type searchResponse struct {
	XMLName xml.Name `xml:"response"`
	responseHeader
	Total int          `xml:"total"`
	Files []fileRecord `xml:"file"`
}

type fileRecord struct {
	Ident         string `xml:"ident"`
	Name          string `xml:"name"`
	Type          string `xml:"type"`
	Size          string `xml:"size"`
	PositiveVotes string `xml:"positive_votes"`
	NegativeVotes string `xml:"negative_votes"`
	Password      string `xml:"password"`
}

type fileLinkResponse struct {
	XMLName xml.Name `xml:"response"`
	responseHeader
	Link string `xml:"link"`
}

func parseSalt(payload []byte) (string, error) {
	var resp saltResponse
	if err := decodeXML(payload, &resp); err != nil {
		return "", err
	}
	if err := resp.check("salt"); err != nil {
		return "", err
	}
	salt := strings.TrimSpace(resp.Salt)
	if salt == "" {
		return "", fmt.Errorf("%w: <salt>", errMissingField)
	}
	return salt, nil
}

func parseLogin(payload []byte) (string, error) {
	var resp loginResponse
	if err := decodeXML(payload, &resp); err != nil {
		return "", err
	}
	if err := resp.check("login"); err != nil {
		return "", err
	}
	token := strings.TrimSpace(resp.Token)
	if token == "" {
		return "", fmt.Errorf("%w: <token>", errMissingField)
	}
	return token, nil
}

func parseFileLink(payload []byte) (string, error) {
	var resp fileLinkResponse
	if err := decodeXML(payload, &resp); err != nil {
		return "", err
	}
	if err := resp.check("file_link"); err != nil {
		return "", err
	}
	link := strings.TrimSpace(resp.Link)
	if link == "" {
		return "", fmt.Errorf("%w: <link>", errMissingField)
	}
	return link, nil
}

// parseSearch returns the well-formed records and how many were skipped.
func parseSearch(payload []byte) ([]domain.SearchCandidate, int, error) {
	var resp searchResponse
	if err := decodeXML(payload, &resp); err != nil {
		return nil, 0, err
	}
	if err := resp.check("search"); err != nil {
		return nil, 0, err
	}
	candidates := make([]domain.SearchCandidate, 0, len(resp.Files))
	skipped := 0
	for _, record := range resp.Files {
		candidate, err := record.candidate()
		if err != nil {
			skipped++
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, skipped, nil
}

func (r fileRecord) candidate() (domain.SearchCandidate, error) {
	ident := strings.TrimSpace(r.Ident)
	name := strings.TrimSpace(r.Name)
	if ident == "" {
		return domain.SearchCandidate{}, fmt.Errorf("%w: <ident>", errMissingField)
	}
	if name == "" {
		return domain.SearchCandidate{}, fmt.Errorf("%w: <name> for %s", errMissingField, ident)
	}
	size, err := strconv.ParseInt(strings.TrimSpace(r.Size), 10, 64)
	if err != nil || size < 0 {
		return domain.SearchCandidate{}, fmt.Errorf("%w: bad <size> %q for %s", domain.ErrProtocol, r.Size, ident)
	}
	return domain.SearchCandidate{
		ID:                  ident,
		DisplayName:         name,
		SizeBytes:           size,
		PositiveVotes:       parseCount(r.PositiveVotes),
		NegativeVotes:       parseCount(r.NegativeVotes),
		IsPasswordProtected: strings.TrimSpace(r.Password) == "1",
	}, nil
}

func parseCount(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return 0
	}
	return value
}
