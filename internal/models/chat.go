package models

// ChatRequest is the buffered chat request body
type ChatRequest struct {
	Prompt string `json:"prompt"`
}

// ChatResponse is the buffered chat response body
type ChatResponse struct {
	Result string `json:"result"`
}

// StreamEventKind tags one event in a turn's stream
type StreamEventKind string

const (
	// StreamEventThinking carries a fragment of the model's reasoning trace
	StreamEventThinking StreamEventKind = "thinking"
	// StreamEventContent carries a fragment of the answer
	StreamEventContent StreamEventKind = "content"
	// StreamEventRejected is terminal: the input guard refused the prompt
	StreamEventRejected StreamEventKind = "rejected"
	// StreamEventRetracted is terminal: the output guard flagged content
	// that has already been delivered. Advisory only.
	StreamEventRetracted StreamEventKind = "retracted"
	// StreamEventError is terminal: the generator failed mid-stream
	StreamEventError StreamEventKind = "error"
)

// StreamEvent is one element of the lazy event sequence returned by the
// streaming turn pipeline.
type StreamEvent struct {
	Kind StreamEventKind
	Text string
	Err  error
}

// TurnRecord is the durable audit record written exactly once per turn.
// ResponseContent always holds the genuinely generated text, even when a
// substitute was returned to the caller.
type TurnRecord struct {
	ConversationID  uint
	RequestContent  string
	ResponseContent string
	ThinkingContent string
	RAGContent      string
	URLContent      string
}
