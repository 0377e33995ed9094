package llms

// Response is a single completion returned by an LLM.
type Response struct {
	Content string
}

// MessageRole describes who a prompt message is from.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is a prior message sent along with a prompt, e.g. earlier
// statements of the consultation.
type Message struct {
	Role    MessageRole
	Content string
}
