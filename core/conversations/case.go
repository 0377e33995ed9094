package conversations

import (
	"errors"
	"strings"
)

const (
	DefaultSeverity = "5"
	DefaultDuration = "a few hours"
)

var ErrMissingSymptoms = errors.New("symptoms are required")

// Case is the participant's description of what is going on. It is never
// modified once a session starts.
type Case struct {
	Symptoms string
	Severity string
	Duration string
}

// NewCase trims the input and fills in defaults for the optional fields.
func NewCase(symptoms, severity, duration string) Case {
	c := Case{
		Symptoms: strings.TrimSpace(symptoms),
		Severity: strings.TrimSpace(severity),
		Duration: strings.TrimSpace(duration),
	}
	if c.Severity == "" {
		c.Severity = DefaultSeverity
	}
	if c.Duration == "" {
		c.Duration = DefaultDuration
	}
	return c
}

func (c Case) Validate() error {
	if strings.TrimSpace(c.Symptoms) == "" {
		return ErrMissingSymptoms
	}
	return nil
}
