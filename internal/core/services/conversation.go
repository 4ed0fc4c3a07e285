package services

import "github.com/custodia-labs/docent/internal/core/domain"

// BoundConversation keeps the most recent exchanges of a conversation,
// oldest first. One exchange is a user message and its reply, so the
// result holds at most 2*turns messages. Older turns are dropped
// silently; the caller owns the full history.
func BoundConversation(history []domain.ChatTurn, turns int) domain.ConversationContext {
	if turns <= 0 || len(history) == 0 {
		return domain.ConversationContext{}
	}

	keep := 2 * turns
	if len(history) > keep {
		history = history[len(history)-keep:]
	}

	bounded := make([]domain.ChatTurn, len(history))
	copy(bounded, history)
	return domain.ConversationContext{Turns: bounded}
}
