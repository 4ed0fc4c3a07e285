package domain

// Chat roles recognised in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is a single message in a conversation.
type ChatTurn struct {
	// Role is RoleUser or RoleAssistant.
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// ConversationContext is an ordered sequence of chat turns bounded to a
// configured number of recent exchanges. It is supplied per call and
// owned exclusively by the caller.
type ConversationContext struct {
	// Turns is the bounded history, oldest first.
	Turns []ChatTurn
}

// IsEmpty reports whether the context carries any turns.
func (c ConversationContext) IsEmpty() bool {
	return len(c.Turns) == 0
}
