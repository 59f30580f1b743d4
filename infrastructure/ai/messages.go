package ai

import "nodal/domain/core/entities"

// maxLineSize bounds one streamed line
const maxLineSize = 1024 * 1024

// chatMessage is the role/content pair both chat APIs accept
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toChatMessages(messages []entities.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
