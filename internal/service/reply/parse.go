package reply

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"mailtriage/internal/models"
)

// parseReply recovers a structured reply from raw model output. Strict JSON
// is tried first; a loose field-splitting pass runs behind it so a model that
// drifted from the contract still yields a usable draft.
func parseReply(raw string) (*models.GeneratedReply, error) {
	if generated, err := parseStructured(raw); err == nil {
		return generated, nil
	}
	return parseLoose(raw)
}

type wireReply struct {
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	Recommendation string `json:"recommendation"`
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// parseStructured decodes the expected JSON object, tolerating a markdown
// code fence around it.
func parseStructured(raw string) (*models.GeneratedReply, error) {
	trimmed := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(trimmed); m != nil {
		trimmed = strings.TrimSpace(m[1])
	}
	var wire wireReply
	if err := json.Unmarshal([]byte(trimmed), &wire); err != nil {
		return nil, err
	}
	if wire.Subject == "" || wire.Body == "" {
		return nil, errors.New("structured reply missing subject or body")
	}
	return &models.GeneratedReply{
		Subject:        wire.Subject,
		Body:           wire.Body,
		Recommendation: wire.Recommendation,
	}, nil
}

var (
	subjectLine        = regexp.MustCompile(`(?im)^\s*subject\s*:\s*(.+)$`)
	recommendationLine = regexp.MustCompile(`(?im)^\s*recommendation\s*:\s*`)
)

// parseLoose splits free text on Subject:/Recommendation: markers. It is a
// best effort: anything after the subject line up to a recommendation marker
// becomes the body.
func parseLoose(raw string) (*models.GeneratedReply, error) {
	m := subjectLine.FindStringSubmatchIndex(raw)
	if m == nil {
		return nil, errors.New("no subject marker in reply text")
	}
	subject := strings.TrimSpace(raw[m[2]:m[3]])
	rest := raw[m[1]:]

	var body, rec string
	if rm := recommendationLine.FindStringIndex(rest); rm != nil {
		body = strings.TrimSpace(rest[:rm[0]])
		rec = strings.TrimSpace(rest[rm[1]:])
	} else {
		body = strings.TrimSpace(rest)
	}
	body = strings.TrimPrefix(body, "Body:")
	body = strings.TrimSpace(body)

	if subject == "" || body == "" {
		return nil, errors.New("loose parse produced empty subject or body")
	}
	return &models.GeneratedReply{
		Subject:        subject,
		Body:           body,
		Recommendation: rec,
	}, nil
}
