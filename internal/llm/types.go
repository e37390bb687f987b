package llm

// Chat roles understood by OpenAI-compatible servers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams tunes a single completion. Zero values leave the server defaults
// in place: an empty Model uses the client's model, MaxTokens 0 sends no limit
// and Temperature 0 omits the field.
type ChatParams struct {
	Model       string
	MaxTokens   int
	Temperature float32
}
