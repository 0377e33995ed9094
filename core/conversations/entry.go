package conversations

import (
	"fmt"
	"time"
)

// HumanSpeaker is how participant entries are attributed in prompts.
const HumanSpeaker = "Patient"

// Source is a citation a specialist grounds its statement in.
type Source struct {
	Title string `json:"title" yaml:"title" toml:"title"`
	Type  string `json:"type" yaml:"type" toml:"type"`
	PMID  string `json:"pmid,omitempty" yaml:"pmid,omitempty" toml:"pmid,omitempty"`
	Icon  string `json:"icon,omitempty" yaml:"icon,omitempty" toml:"icon,omitempty"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty"`
}

func (s Source) Citation() string {
	if s.PMID != "" {
		return fmt.Sprintf("%s [PMID: %s]", s.Title, s.PMID)
	}
	return s.Title
}

// Entry is a single statement in the transcript.
type Entry struct {
	RoleID        RoleID
	Agent         string
	Text          string
	Sources       []Source
	IsHumanOrigin bool
	At            time.Time
}

// Speaker is the name the entry is attributed to.
func (e Entry) Speaker() string {
	if e.IsHumanOrigin {
		return HumanSpeaker
	}
	return e.Agent
}

// AgentEntries drops human-origin entries, keeping order.
func AgentEntries(entries []Entry) []Entry {
	filtered := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsHumanOrigin {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}
