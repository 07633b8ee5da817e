package domain

// Conversation roles accepted from clients.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prior message of a conversation as supplied by the client.
type Turn struct {
	Role    string
	Content string
}
