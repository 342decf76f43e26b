package domain

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one message in a chat session. Turns are append-only
// and owned by a single session.
type ConversationTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// LastTurns returns at most n trailing turns from history. Prompt growth
// stays bounded regardless of session length.
func LastTurns(history []ConversationTurn, n int) []ConversationTurn {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
