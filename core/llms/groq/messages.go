package groq

import "github.com/koscakluka/huddle-core/core/llms"

type message struct {
	Role    messageRole `json:"role"`
	Content string      `json:"content"`
}

type messageRole string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

func toMessages(options llms.BaseOptions, prompt string) []message {
	messages := []message{}
	if options.Instructions != "" {
		messages = append(messages, message{
			Role:    messageRoleSystem,
			Content: options.Instructions,
		})
	}
	for _, msg := range options.Messages {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case llms.MessageRoleSystem:
			messages = append(messages, message{Role: messageRoleSystem, Content: msg.Content})
		case llms.MessageRoleAssistant:
			messages = append(messages, message{Role: messageRoleAssistant, Content: msg.Content})
		default:
			messages = append(messages, message{Role: messageRoleUser, Content: msg.Content})
		}
	}
	messages = append(messages, message{
		Role:    messageRoleUser,
		Content: prompt,
	})
	return messages
}
