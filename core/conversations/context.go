package conversations

import "strings"

// ActiveContext exposes live consultation context to generation
// collaborators.
type ActiveContext interface {
	// Case is the immutable case input for the session.
	Case() Case

	// Transcript is the append-only conversation. Ordering: oldest -> newest.
	Transcript() []Entry
}

// TurnContext is everything a collaborator sees when producing a single
// utterance.
type TurnContext struct {
	Case       Case
	Transcript []Entry

	// Interjection is new information the participant just added, empty when
	// nothing was folded into this turn.
	Interjection string
}

// PreviousMessages renders the transcript as `Agent: text` paragraphs in
// conversation order.
func (c TurnContext) PreviousMessages() string {
	var b strings.Builder
	for i, entry := range c.Transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(entry.Speaker())
		b.WriteString(": ")
		b.WriteString(entry.Text)
	}
	return b.String()
}

// HasDiscussion reports whether anyone has spoken yet.
func (c TurnContext) HasDiscussion() bool {
	return len(c.Transcript) > 0
}
